package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"S3Joiner/internal/backend"
	"S3Joiner/internal/engine/join"
	"S3Joiner/internal/restore"
	"S3Joiner/internal/s3"
)

var (
	fetchJob    string
	fetchDate   string
	fetchOutput string
	fetchVerify bool
	fetchRaw    bool
)

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().StringVar(&fetchJob, "job", "", "Job name (required)")
	fetchCmd.Flags().StringVar(&fetchDate, "date", "", "Output date YYYYMMDD (default: latest output)")
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "-", "Destination file, - for stdout")
	fetchCmd.Flags().BoolVar(&fetchVerify, "verify-only", false, "Check size and checksum without writing the data")
	fetchCmd.Flags().BoolVar(&fetchRaw, "raw", false, "Copy the stored bytes without decompressing or verifying")
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a joined output and verify it against its manifest",
	RunE:  runFetch,
}

func runFetch(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()
	if fetchJob == "" {
		return fmt.Errorf("--job is required")
	}
	if fetchDate != "" {
		if _, ok := s3.ParseDateStamp(fetchDate); !ok {
			return fmt.Errorf("invalid --date %q: want YYYYMMDD", fetchDate)
		}
	}
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	store, err := backend.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	date := fetchDate
	if date == "" {
		p, err := join.ReadLatest(ctx, store, fetchJob)
		if err != nil {
			return fmt.Errorf("no latest output for job %q: %w", fetchJob, err)
		}
		date = p.Date
	}
	m, err := join.ReadManifest(ctx, store, fetchJob, date)
	if err != nil {
		return err
	}

	var dst io.Writer = io.Discard
	if !fetchVerify {
		if fetchOutput == "-" {
			dst = cmd.OutOrStdout()
		} else {
			f, cerr := os.Create(fetchOutput)
			if cerr != nil {
				return cerr
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()
			dst = f
		}
	}

	res, err := restore.Output(ctx, store, m, dst, restore.Options{Raw: fetchRaw})
	if err != nil {
		return err
	}
	if fetchVerify || fetchOutput != "-" {
		status := "not verified"
		if res.Verified {
			status = "checksum OK"
		}
		cmd.PrintErrf("%s: %s, %s\n", res.Key, humanize.Bytes(uint64(res.Written)), status)
	}
	return nil
}
