package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"S3Joiner/internal/backend"
	"S3Joiner/internal/config"
	"S3Joiner/internal/engine/join"
	"S3Joiner/internal/logging"
	"S3Joiner/internal/metrics"
	"S3Joiner/internal/s3"
)

func loadConfig(checkPerms bool) (*config.Config, error) {
	return config.LoadAndValidate(checkPerms)
}

// newLogger applies --log-level/--log-format over the log section of cfg.
func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	opts := logging.Options{Level: logLevelFlag, Format: logFormatFlag}
	if cfg != nil && cfg.Log != nil {
		if opts.Level == "" {
			opts.Level = cfg.Log.Level
		}
		if opts.Format == "" {
			opts.Format = cfg.Log.Format
		}
	}
	return logging.New(opts)
}

type engineOptions struct {
	date   time.Time
	dryRun bool
}

// openEngine opens the configured store and builds a join engine on it. The
// returned store must be closed by the caller.
func openEngine(ctx context.Context, cmd *cobra.Command, cfg *config.Config, eo engineOptions) (*join.Engine, *backend.Store, error) {
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	host, _ := os.Hostname()
	if host == "" {
		host = "localhost"
	}
	e := join.NewEngine(store, cfg, join.EngineOptions{
		Notifier: NotifierFromConfig(cfg, func(msg string) { cmd.PrintErrln("Warning:", msg) }),
		Metrics:  metrics.NewRecorder(),
		Logger:   log,
		Date:     eo.date,
		DryRun:   eo.dryRun,
		Host:     host,
	})
	return e, store, nil
}

// selectJobs resolves --job/--all. --all picks enabled jobs only; naming a
// disabled job explicitly is an error unless allowDisabled is set.
func selectJobs(cfg *config.Config, name string, all, allowDisabled bool) ([]config.JobConfig, error) {
	if all {
		var jobs []config.JobConfig
		for _, j := range cfg.Jobs {
			if j.Enabled {
				jobs = append(jobs, j)
			}
		}
		return jobs, nil
	}
	if name == "" {
		return nil, fmt.Errorf("specify --job <name> or --all")
	}
	job := config.FindJob(cfg, name)
	if job == nil {
		return nil, errJobNotFound(name)
	}
	if !job.Enabled && !allowDisabled {
		return nil, fmt.Errorf("job %q is disabled", name)
	}
	return []config.JobConfig{*job}, nil
}

func errJobNotFound(name string) error {
	return fmt.Errorf("job %q not found", name)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := s3.ParseDateStamp(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYYMMDD", s)
	}
	return t, nil
}
