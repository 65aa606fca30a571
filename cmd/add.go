package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"S3Joiner/internal/config"

	"github.com/spf13/cobra"
)

var addJobTemplate string
var addJobName string

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.AddCommand(addJobCmd)
	addJobCmd.Flags().StringVar(&addJobTemplate, "template", "", "Job template: "+strings.Join(config.JobTemplateNames(), " or "))
	addJobCmd.Flags().StringVar(&addJobName, "name", "", "Job name (required with --template)")
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a resource",
}

var addJobCmd = &cobra.Command{
	Use:   "job",
	Short: "Add a new join job (interactive or template)",
	RunE:  runAddJob,
}

func runAddJob(cmd *cobra.Command, args []string) error {
	if addJobTemplate != "" {
		return runAddJobTemplate(cmd)
	}
	return runAddJobInteractive(cmd)
}

func runAddJobTemplate(cmd *cobra.Command) error {
	if addJobName == "" {
		return fmt.Errorf("--name is required when using --template")
	}
	job := config.JobTemplate(addJobTemplate, addJobName)
	if job == nil {
		return fmt.Errorf("unknown template %q (use: %s)", addJobTemplate, strings.Join(config.JobTemplateNames(), ", "))
	}
	return addJobToConfig(cmd, job)
}

func runAddJobInteractive(cmd *cobra.Command) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	reader := bufio.NewReader(os.Stdin)
	jobName := prompt(reader, "Job name", "daily-join")
	if jobName == "" {
		return fmt.Errorf("job name is required")
	}
	if config.FindJob(cfg, jobName) != nil {
		return fmt.Errorf("job %q already exists", jobName)
	}
	fmt.Println("Available templates: daily (plain csv), compressed (zstd)")
	tpl := strings.ToLower(strings.TrimSpace(prompt(reader, "Template (daily/compressed) or \"custom\"", "daily")))
	job := config.JobTemplate(tpl, jobName)
	if job == nil {
		offset, err := strconv.Atoi(prompt(reader, "Day offset of the input shards", strconv.Itoa(config.DefaultDayOffset)))
		if err != nil {
			return fmt.Errorf("day offset: %w", err)
		}
		job = &config.JobConfig{
			Name:         jobName,
			Enabled:      true,
			InputPrefix:  prompt(reader, "Input prefix", config.DefaultInputPrefix),
			OutputPrefix: prompt(reader, "Output prefix", config.DefaultOutputPrefix),
			OutputExt:    prompt(reader, "Output extension", config.DefaultOutputExt),
			DayOffset:    &offset,
			Compression:  prompt(reader, "Compression (none/gz/zst)", config.CompressionNone),
			Schedule:     &config.ScheduleConfig{Period: "day", Times: 1, JitterMinutes: 10},
			Retention:    &config.RetentionConfig{Days: 30},
		}
	}
	return addJobToConfig(cmd, job)
}

func addJobToConfig(cmd *cobra.Command, job *config.JobConfig) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	if config.FindJob(cfg, job.Name) != nil {
		return fmt.Errorf("job %q already exists", job.Name)
	}
	cfg.Jobs = append(cfg.Jobs, *job)
	if err := config.Validate(cfg); err != nil {
		return err
	}
	path := config.ResolveConfigPath()
	if err := config.Write(cfg, path); err != nil {
		return err
	}
	cmd.Printf("Job %q added\n", job.Name)
	return nil
}
