package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pruneJob string
	pruneAll bool
)

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().StringVar(&pruneJob, "job", "", "Prune only this job")
	pruneCmd.Flags().BoolVar(&pruneAll, "all", false, "Prune all enabled jobs")
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete joined outputs older than each job's retention",
	RunE:  runPrune,
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	jobs, err := selectJobs(cfg, pruneJob, pruneAll, true)
	if err != nil {
		return err
	}
	e, store, err := openEngine(ctx, cmd, cfg, engineOptions{})
	if err != nil {
		return err
	}
	defer store.Close()

	var failed int
	for _, job := range jobs {
		if job.Retention == nil {
			cmd.Printf("Job %q: no retention configured, skipped\n", job.Name)
			continue
		}
		deleted, err := e.Prune(ctx, job.Name)
		if err != nil {
			cmd.Printf("Job %q: prune failed after %d deletions: %v\n", job.Name, deleted, err)
			failed++
			continue
		}
		cmd.Printf("Job %q: %d outputs deleted\n", job.Name, deleted)
	}
	if failed > 0 {
		return fmt.Errorf("prune failed for %d jobs", failed)
	}
	return nil
}
