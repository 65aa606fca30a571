package config

import "time"

// RetainUntil returns the cutoff before which joined outputs are expired.
// The longest of days/weeks/months wins; zero means keep forever.
func RetainUntil(now time.Time, r *RetentionConfig) time.Time {
	if r == nil {
		return time.Time{}
	}
	days := r.Days
	if r.Weeks*7 > days {
		days = r.Weeks * 7
	}
	if r.Months*30 > days {
		days = r.Months * 30
	}
	if days <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -days)
}

func IsExpired(outputDate, now time.Time, r *RetentionConfig) bool {
	cutoff := RetainUntil(now, r)
	if cutoff.IsZero() {
		return false
	}
	return outputDate.Before(cutoff)
}
