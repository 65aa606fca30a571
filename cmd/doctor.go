package cmd

import (
	"context"
	"fmt"

	"S3Joiner/internal/config"
	"S3Joiner/internal/doctor"

	"github.com/spf13/cobra"
)

var doctorLockDir string

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().StringVar(&doctorLockDir, "lock-dir", "", "Local lock directory to check (default /var/run/s3joiner)")
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose config, storage connectivity, locks, and disk",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	v, err := config.Load(true)
	if err != nil {
		cmd.Printf("Config load: ERROR: %v\n", err)
		return err
	}
	cfg, err := config.Unmarshal(v)
	if err != nil {
		cmd.Printf("Config unmarshal: ERROR: %v\n", err)
		return err
	}

	results := doctor.Run(ctx, cfg, doctor.Options{LockDir: doctorLockDir})
	for _, r := range results {
		status := "OK"
		if !r.OK {
			status = "ERROR"
		}
		cmd.Printf("%-12s %s: %s\n", r.Name, status, r.Detail)
	}
	if !doctor.Healthy(results) {
		return fmt.Errorf("one or more checks failed; see output above")
	}
	return nil
}
