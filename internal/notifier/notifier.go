package notifier

import (
	"context"
	"time"

	"S3Joiner/internal/config"
)

// JoinSummary describes a finished join for success notifications.
type JoinSummary struct {
	Job       string
	Date      string
	OutputKey string
	Objects   int
	Size      int64
	Duration  time.Duration
}

// Event names accepted in notifications.discord.events.
const (
	EventStart   = "start"
	EventSuccess = "success"
	EventWarning = "warning"
	EventError   = "error"
	EventPrune   = "prune"
)

var Events = []string{EventStart, EventSuccess, EventWarning, EventError, EventPrune}

type Notifier interface {
	NotifyStart(ctx context.Context, jobName, date string) error
	NotifySuccess(ctx context.Context, s JoinSummary) error
	NotifyWarning(ctx context.Context, jobName, date, message string) error
	NotifyError(ctx context.Context, jobName, date string, err error) error
	NotifyPrune(ctx context.Context, jobName string, retained, deleted int) error
}

// New returns the configured notifier, or Nop when notifications are off.
func New(cfg *config.NotificationsConfig) (Notifier, error) {
	if !config.NotificationsEnabled(cfg) || cfg.Discord == nil || !cfg.Discord.Enabled {
		return Nop{}, nil
	}
	return NewDiscordNotifier(cfg.Discord)
}

type Nop struct{}

func (Nop) NotifyStart(context.Context, string, string) error           { return nil }
func (Nop) NotifySuccess(context.Context, JoinSummary) error            { return nil }
func (Nop) NotifyWarning(context.Context, string, string, string) error { return nil }
func (Nop) NotifyError(context.Context, string, string, error) error    { return nil }
func (Nop) NotifyPrune(context.Context, string, int, int) error         { return nil }
