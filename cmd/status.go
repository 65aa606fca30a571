package cmd

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"S3Joiner/internal/schedule"
)

var statusJob string

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusJob, "job", "", "Show only this job")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last joined output and the next scheduled run of each job",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	// status shows disabled jobs too
	jobs := cfg.Jobs
	if statusJob != "" {
		if jobs, err = selectJobs(cfg, statusJob, false, true); err != nil {
			return err
		}
	}
	if len(jobs) == 0 {
		cmd.Println("No jobs configured")
		return nil
	}

	e, store, err := openEngine(ctx, cmd, cfg, engineOptions{dryRun: true})
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now()
	for _, job := range jobs {
		cmd.Printf("Job %s (%s)\n", job.Name, onOff(job.Enabled))
		m, err := e.Latest(ctx, job.Name)
		switch {
		case err != nil:
			cmd.Printf("  Last output: error: %v\n", err)
		case m == nil:
			cmd.Println("  Last output: none")
		default:
			cmd.Printf("  Last output: %s (%s, %s objects, %s)\n",
				m.Key, humanize.Bytes(uint64(m.Size)), humanize.Comma(int64(m.Objects)), humanize.Time(m.CreatedAt))
			if m.Checksum != "" {
				cmd.Printf("  Checksum:    %s\n", m.Checksum)
			}
		}
		next, desc := schedule.NextRun(job.Schedule, now)
		if next.IsZero() {
			cmd.Printf("  Next run:    %s\n", desc)
		} else {
			cmd.Printf("  Next run:    %s (%s, %s)\n", next.Format(time.RFC3339), humanize.Time(next), desc)
		}
	}
	return nil
}
