package join

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"S3Joiner/internal/config"
	"S3Joiner/internal/engine"
	"S3Joiner/internal/lock"
	"S3Joiner/internal/metrics"
	"S3Joiner/internal/notifier"
	"S3Joiner/internal/objstore"
	"S3Joiner/internal/s3"
)

const defaultLockTTL = 60 * time.Minute

type EngineOptions struct {
	Notifier notifier.Notifier
	Metrics  *metrics.Recorder
	Logger   zerolog.Logger
	// Now defaults to time.Now.
	Now    func() time.Time
	Date   time.Time
	DryRun bool
	Host   string
}

// Engine runs configured join jobs against one store. Around each join it
// takes the job lock, sends notifications and records metrics.
type Engine struct {
	store objstore.Storage
	cfg   *config.Config
	opts  EngineOptions
}

func NewEngine(store objstore.Storage, cfg *config.Config, opts EngineOptions) *Engine {
	if opts.Notifier == nil {
		opts.Notifier = notifier.Nop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRecorder()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{store: store, cfg: cfg, opts: opts}
}

func (e *Engine) job(name string) (*config.JobConfig, error) {
	job := config.FindJob(e.cfg, name)
	if job == nil {
		return nil, fmt.Errorf("job %q not found", name)
	}
	return job, nil
}

func (e *Engine) runOptions() RunOptions {
	return RunOptions{
		Now:    e.opts.Now(),
		Date:   e.opts.Date,
		DryRun: e.opts.DryRun,
		Logger: e.opts.Logger,
		Host:   e.opts.Host,
	}
}

// Plan lists and orders the inputs of jobName without reading them.
func (e *Engine) Plan(ctx context.Context, jobName string) (*Plan, error) {
	job, err := e.job(jobName)
	if err != nil {
		return nil, err
	}
	return BuildPlan(ctx, e.store, SpecFromConfig(job), e.runOptions())
}

func (e *Engine) Run(ctx context.Context, jobName string) (*engine.RunSummary, error) {
	job, err := e.job(jobName)
	if err != nil {
		return nil, err
	}
	spec := SpecFromConfig(job)
	opts := e.runOptions()
	log := e.opts.Logger.With().Str("job", job.Name).Logger()
	_, outDay := Dates(spec, opts)
	date := s3.DateStamp(outDay)

	if !opts.DryRun && job.Lock != nil && job.Lock.Enabled {
		ttl := defaultLockTTL
		if job.Lock.TTLMinutes > 0 {
			ttl = time.Duration(job.Lock.TTLMinutes) * time.Minute
		}
		l, err := lock.NewObject(lock.ObjectOptions{Store: e.store, Name: job.Name, TTL: ttl})
		if err != nil {
			return nil, err
		}
		if err := l.Acquire(ctx); err != nil {
			return nil, err
		}
		defer func() {
			if err := l.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("failed to release job lock")
			}
		}()
	}

	if !opts.DryRun {
		if err := e.opts.Notifier.NotifyStart(ctx, job.Name, date); err != nil {
			log.Warn().Err(err).Msg("start notification failed")
		}
	}

	opts.Observer = func(ev ObjectEvent) {
		if ev.Kind == ObjectClosed {
			e.opts.Metrics.ObserveObject(job.Name, ev.Bytes)
		}
	}
	res, err := Run(ctx, e.store, spec, opts)
	if opts.DryRun {
		return summarize(res), err
	}

	var objects int
	var written int64
	var elapsed time.Duration
	if res != nil {
		objects, written, elapsed = len(res.Objects), res.Written, res.Duration
	}
	e.opts.Metrics.ObserveRun(job.Name, objects, written, elapsed, err, e.opts.Now())

	if err != nil {
		if nerr := e.opts.Notifier.NotifyError(ctx, job.Name, date, err); nerr != nil {
			log.Warn().Err(nerr).Msg("error notification failed")
		}
		return summarize(res), err
	}
	if len(res.SizeDrift) > 0 {
		msg := fmt.Sprintf("%d objects differed in size from the listing: %s",
			len(res.SizeDrift), strings.Join(res.SizeDrift, ", "))
		if nerr := e.opts.Notifier.NotifyWarning(ctx, job.Name, res.OutputDate, msg); nerr != nil {
			log.Warn().Err(nerr).Msg("warning notification failed")
		}
	}
	if nerr := e.opts.Notifier.NotifySuccess(ctx, notifier.JoinSummary{
		Job:       job.Name,
		Date:      res.OutputDate,
		OutputKey: res.OutputKey,
		Objects:   len(res.Objects),
		Size:      res.Written,
		Duration:  res.Duration,
	}); nerr != nil {
		log.Warn().Err(nerr).Msg("success notification failed")
	}
	return summarize(res), nil
}

func summarize(res *Result) *engine.RunSummary {
	if res == nil {
		return nil
	}
	return &engine.RunSummary{
		Job:       res.Job,
		Date:      res.OutputDate,
		OutputKey: res.OutputKey,
		Objects:   len(res.Objects),
		Size:      res.TotalSize,
		Stored:    res.Stored,
		Checksum:  res.Checksum,
		Duration:  res.Duration,
		DryRun:    res.DryRun,
	}
}

// List returns the recorded outputs of jobName, oldest first.
func (e *Engine) List(ctx context.Context, jobName string) ([]engine.ListEntry, error) {
	dates, err := ListManifests(ctx, e.store, jobName)
	if err != nil {
		return nil, err
	}
	entries := make([]engine.ListEntry, 0, len(dates))
	for _, date := range dates {
		m, err := ReadManifest(ctx, e.store, jobName, date)
		if err != nil {
			return nil, err
		}
		entries = append(entries, engine.ListEntry{
			JobName:  jobName,
			Date:     date,
			Key:      m.Key,
			Objects:  m.Objects,
			Size:     m.Size,
			Checksum: m.Checksum,
		})
	}
	return entries, nil
}

// Latest returns the newest recorded output of jobName, or nil if there is none.
func (e *Engine) Latest(ctx context.Context, jobName string) (*Manifest, error) {
	p, err := ReadLatest(ctx, e.store, jobName)
	if errors.Is(err, objstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ReadManifest(ctx, e.store, jobName, p.Date)
}

func (e *Engine) Prune(ctx context.Context, jobName string) (int, error) {
	job, err := e.job(jobName)
	if err != nil {
		return 0, err
	}
	deleted, err := ApplyRetention(ctx, e.store, job.Name, job.Retention, e.opts.Now(), e.opts.Logger)
	if err != nil {
		return deleted, err
	}
	if deleted > 0 {
		remaining, err := ListManifests(ctx, e.store, job.Name)
		if err != nil {
			return deleted, err
		}
		if nerr := e.opts.Notifier.NotifyPrune(ctx, job.Name, len(remaining), deleted); nerr != nil {
			e.opts.Logger.Warn().Err(nerr).Str("job", job.Name).Msg("prune notification failed")
		}
	}
	return deleted, nil
}

// PushMetrics sends collected metrics to the configured Pushgateway, if any.
func (e *Engine) PushMetrics(ctx context.Context) error {
	if e.cfg == nil || e.cfg.Metrics == nil {
		return nil
	}
	return e.opts.Metrics.Push(ctx, e.cfg.Metrics.PushgatewayURL, e.cfg.Metrics.JobLabel)
}

var _ engine.Engine = (*Engine)(nil)
