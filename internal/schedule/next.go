// Package schedule maps a job schedule (period + times per period) to fixed
// calendar slots. The same slots feed systemd OnCalendar lines and the
// next-run estimate shown by status.
package schedule

import (
	"fmt"
	"time"

	"S3Joiner/internal/config"
)

const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// Runs start at 02:00 so the previous day's shards are complete.
const runHour = 2

var (
	dayHours  = [][]int{{2}, {2, 14}, {2, 10, 18}, {2, 8, 14, 20}, {2, 6, 12, 18, 22}}
	weekDays  = [][]time.Weekday{{time.Monday}, {time.Monday, time.Thursday}, {time.Monday, time.Wednesday, time.Friday}, {time.Monday, time.Tuesday, time.Thursday, time.Friday}, {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}}
	monthDays = [][]int{{1}, {1, 15}, {1, 10, 20}, {1, 8, 15, 22}, {1, 7, 14, 21, 28}}
)

func times(s *config.ScheduleConfig) int {
	n := s.Times
	if n < 1 {
		n = 1
	}
	if n > 5 {
		n = 5
	}
	return n
}

// OnCalendar returns the systemd OnCalendar expressions for s.
func OnCalendar(s *config.ScheduleConfig) []string {
	n := times(s)
	var out []string
	switch s.Period {
	case PeriodWeek:
		for _, d := range weekDays[n-1] {
			out = append(out, fmt.Sprintf("%s *-*-* %02d:00:00", d.String()[:3], runHour))
		}
	case PeriodMonth:
		for _, d := range monthDays[n-1] {
			out = append(out, fmt.Sprintf("*-*-%02d %02d:00:00", d, runHour))
		}
	default:
		for _, h := range dayHours[n-1] {
			out = append(out, fmt.Sprintf("*-*-* %02d:00:00", h))
		}
	}
	return out
}

// NextRun returns the next slot strictly after now, in now's location, and a
// short description. Randomized jitter is not included in the returned time.
func NextRun(s *config.ScheduleConfig, now time.Time) (next time.Time, desc string) {
	if s == nil || s.Times < 1 {
		return time.Time{}, "no schedule"
	}
	n := times(s)
	desc = describe(s.Period, n)
	if s.JitterMinutes > 0 {
		desc += fmt.Sprintf(" (+ up to %dm jitter)", s.JitterMinutes)
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	// Two months covers every monthly slot table.
	for i := 0; i < 62; i++ {
		d := day.AddDate(0, 0, i)
		for _, h := range slotHours(s.Period, n, d) {
			cand := d.Add(time.Duration(h) * time.Hour)
			if cand.After(now) {
				return cand, desc
			}
		}
	}
	return time.Time{}, desc
}

// slotHours returns the hours on day d at which a run is scheduled.
func slotHours(period string, n int, d time.Time) []int {
	switch period {
	case PeriodWeek:
		for _, wd := range weekDays[n-1] {
			if d.Weekday() == wd {
				return []int{runHour}
			}
		}
		return nil
	case PeriodMonth:
		for _, md := range monthDays[n-1] {
			if d.Day() == md {
				return []int{runHour}
			}
		}
		return nil
	default:
		return dayHours[n-1]
	}
}

func describe(period string, n int) string {
	switch period {
	case PeriodWeek:
		return fmt.Sprintf("weekly %d×", n)
	case PeriodMonth:
		return fmt.Sprintf("monthly %d×", n)
	default:
		return fmt.Sprintf("daily %d×", n)
	}
}
