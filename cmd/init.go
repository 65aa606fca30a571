package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"S3Joiner/internal/config"

	"github.com/spf13/cobra"
)

var (
	initDriver   string
	initURL      string
	initEndpoint string
	initRegion   string
	initBucket   string
	initTemplate string
	initJobName  string
	initYes      bool
	initForce    bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDriver, "driver", config.DriverS3, "Storage driver: s3 or blob")
	initCmd.Flags().StringVar(&initURL, "url", "", "Bucket URL for the blob driver (s3://, gs://, file://)")
	initCmd.Flags().StringVar(&initEndpoint, "endpoint", "", "S3 endpoint (empty for AWS)")
	initCmd.Flags().StringVar(&initRegion, "region", "us-east-1", "S3 region")
	initCmd.Flags().StringVar(&initBucket, "bucket", "", "S3 bucket holding input shards and joined outputs")
	initCmd.Flags().StringVar(&initTemplate, "template", "daily", "Template of the first job")
	initCmd.Flags().StringVar(&initJobName, "job", "daily", "Name of the first job")
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Do not prompt; use flag values")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration file",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := config.ResolveConfigPath()
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config %s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if !initYes {
		reader := bufio.NewReader(os.Stdin)
		initDriver = prompt(reader, "Storage driver (s3/blob)", initDriver)
		if initDriver == config.DriverBlob {
			initURL = prompt(reader, "Bucket URL", initURL)
		} else {
			initEndpoint = prompt(reader, "S3 endpoint (Enter for AWS)", initEndpoint)
			initRegion = prompt(reader, "S3 region", initRegion)
			initBucket = prompt(reader, "S3 bucket", initBucket)
		}
		initJobName = prompt(reader, "First job name", initJobName)
		initTemplate = prompt(reader, "Job template (daily/compressed)", initTemplate)
	}

	job := config.JobTemplate(initTemplate, initJobName)
	if job == nil {
		return fmt.Errorf("unknown template %q", initTemplate)
	}
	cfg := &config.Config{
		Storage: &config.StorageConfig{Driver: initDriver, URL: initURL},
		Jobs:    []config.JobConfig{*job},
		Log:     &config.LogConfig{Level: "info", Format: "console"},
	}
	if initDriver != config.DriverBlob {
		cfg.S3 = &config.S3Config{Endpoint: initEndpoint, Region: initRegion, Bucket: initBucket}
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := config.Write(cfg, path); err != nil {
		return err
	}
	cmd.Printf("Configuration written to %s\n", path)
	cmd.Printf("Set credentials in %s as %s_S3_ACCESS_KEY / %s_S3_SECRET_KEY, then run: s3joiner doctor\n",
		config.ResolveEnvFile(), config.EnvPrefix, config.EnvPrefix)
	return nil
}
