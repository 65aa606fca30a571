package cmd

import (
	"S3Joiner/internal/config"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(enableCmd)
	enableCmd.AddCommand(enableJobCmd)
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable a job",
}

var enableJobCmd = &cobra.Command{
	Use:   "job [name]",
	Short: "Enable a job by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setJobEnabled(cmd, args[0], true)
	},
}

// setJobEnabled flips the enabled flag of one job and rewrites the config file.
func setJobEnabled(cmd *cobra.Command, jobName string, enabled bool) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	job := config.FindJob(cfg, jobName)
	if job == nil {
		return errJobNotFound(jobName)
	}
	if job.Enabled == enabled {
		cmd.Printf("Job %q already %s\n", jobName, onOff(enabled))
		return nil
	}
	job.Enabled = enabled
	if err := config.Write(cfg, config.ResolveConfigPath()); err != nil {
		return err
	}
	cmd.Printf("Job %q %s\n", jobName, onOff(enabled))
	return nil
}
