package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	listJob     string
	listDate    string
	listOutputs bool
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listJob, "job", "", "Job name (required)")
	listCmd.Flags().StringVar(&listDate, "date", "", "Input date YYYYMMDD (default: today minus the job's day_offset)")
	listCmd.Flags().BoolVar(&listOutputs, "outputs", false, "List recorded joined outputs instead of the input objects")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a job's input objects in join order, or its joined outputs",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if listJob == "" {
		return fmt.Errorf("--job is required")
	}
	date, err := parseDate(listDate)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	e, store, err := openEngine(ctx, cmd, cfg, engineOptions{date: date, dryRun: true})
	if err != nil {
		return err
	}
	defer store.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
	defer w.Flush()

	if listOutputs {
		entries, err := e.List(ctx, listJob)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			cmd.Printf("No joined outputs recorded for job %q\n", listJob)
			return nil
		}
		fmt.Fprintln(w, "DATE\tOBJECTS\tSIZE\tKEY\t")
		for _, en := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", en.Date, humanize.Comma(int64(en.Objects)), humanize.Bytes(uint64(en.Size)), en.Key)
		}
		return nil
	}

	plan, err := e.Plan(ctx, listJob)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "#\tSIZE\tKEY\t\n")
	for i, o := range plan.Objects {
		fmt.Fprintf(w, "%d\t%s\t%s\t\n", i, humanize.Comma(o.Size), o.Key)
	}
	fmt.Fprintf(w, "\t%s\t%d objects under %s -> %s\t\n", humanize.Bytes(uint64(plan.TotalSize)), len(plan.Objects), plan.InputPrefix, plan.OutputKey)
	return nil
}
