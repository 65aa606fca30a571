package cmd

import (
	"S3Joiner/internal/config"
	"S3Joiner/internal/notifier"
)

// NotifierFromConfig builds a Notifier from cfg. A misconfigured Discord block
// (e.g. missing webhook_url) is reported through warn and yields a Nop notifier
// so the join itself still runs.
func NotifierFromConfig(cfg *config.Config, warn func(string)) notifier.Notifier {
	if cfg == nil {
		return notifier.Nop{}
	}
	n, err := notifier.New(cfg.Notifications)
	if err != nil {
		if warn != nil {
			warn("discord notification: " + err.Error())
		}
		return notifier.Nop{}
	}
	return n
}
