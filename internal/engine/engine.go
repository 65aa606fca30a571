// Package engine defines the job-level operations the CLI drives.
package engine

import (
	"context"
	"time"
)

type Engine interface {
	Run(ctx context.Context, jobName string) (*RunSummary, error)
	List(ctx context.Context, jobName string) ([]ListEntry, error)
	Prune(ctx context.Context, jobName string) (deleted int, err error)
}

// RunSummary is the outcome of one job run.
type RunSummary struct {
	Job       string
	Date      string
	OutputKey string
	Objects   int
	Size      int64
	Stored    int64
	Checksum  string
	Duration  time.Duration
	DryRun    bool
}

// ListEntry is one recorded output of a job.
type ListEntry struct {
	JobName  string
	Date     string
	Key      string
	Objects  int
	Size     int64
	Checksum string
}
