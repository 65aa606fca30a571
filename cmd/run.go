package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	runJob    string
	runAll    bool
	runDryRun bool
	runDate   string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runJob, "job", "", "Run only this job by name")
	runCmd.Flags().BoolVar(&runAll, "all", false, "Run all enabled jobs")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "List and order the inputs without writing anything")
	runCmd.Flags().StringVar(&runDate, "date", "", "Input date YYYYMMDD (default: today minus the job's day_offset)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Join the shard files of one job or all enabled jobs",
	Long: "Run joins the input objects of the given job (--job <name>) or of every enabled job (--all). " +
		"With --all every job is attempted and the command fails if any of them failed.",
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	date, err := parseDate(runDate)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	jobs, err := selectJobs(cfg, runJob, runAll, false)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		cmd.Println("No enabled jobs to run")
		return nil
	}

	e, store, err := openEngine(ctx, cmd, cfg, engineOptions{date: date, dryRun: runDryRun})
	if err != nil {
		return err
	}
	defer store.Close()

	var failed []string
	for i, job := range jobs {
		cmd.Printf("[%d/%d] Running job %q ...\n", i+1, len(jobs), job.Name)
		start := time.Now()
		sum, err := e.Run(ctx, job.Name)
		if err != nil {
			cmd.Printf("  Failed after %s: %v\n", time.Since(start).Round(time.Millisecond), err)
			failed = append(failed, job.Name)
			continue
		}
		if sum.DryRun {
			cmd.Printf("  Dry run: %d objects, %s would be written to %s\n",
				sum.Objects, humanize.Bytes(uint64(sum.Size)), sum.OutputKey)
			continue
		}
		cmd.Printf("  OK in %s: %s objects, %s -> %s\n",
			sum.Duration.Round(time.Millisecond), humanize.Comma(int64(sum.Objects)), humanize.Bytes(uint64(sum.Size)), sum.OutputKey)
	}

	if !runDryRun {
		if err := e.PushMetrics(ctx); err != nil {
			cmd.PrintErrln("Warning:", err)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d jobs failed: %v", len(failed), len(jobs), failed)
	}
	cmd.Println("All jobs completed successfully.")
	return nil
}
