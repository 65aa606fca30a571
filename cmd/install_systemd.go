package cmd

import (
	"fmt"
	"os/exec"
	"runtime"

	"S3Joiner/internal/config"
	"S3Joiner/internal/systemd"

	"github.com/spf13/cobra"
)

var (
	installSystemdUnitDir   string
	installSystemdBinary    string
	installSystemdEnvFile   string
	installSystemdHardening bool
	installSystemdNoEnable  bool
)

func init() {
	rootCmd.AddCommand(installSystemdCmd)
	installSystemdCmd.Flags().StringVar(&installSystemdUnitDir, "unit-dir", systemd.DefaultUnitDir, "Directory for systemd unit files")
	installSystemdCmd.Flags().StringVar(&installSystemdBinary, "binary", systemd.DefaultBinary, "Path of the s3joiner binary used in ExecStart")
	installSystemdCmd.Flags().StringVar(&installSystemdEnvFile, "env-file", "", "EnvironmentFile for secrets (optional)")
	installSystemdCmd.Flags().BoolVar(&installSystemdHardening, "hardening", true, "Add sandboxing directives to the service")
	installSystemdCmd.Flags().BoolVar(&installSystemdNoEnable, "no-enable", false, "Write units without enabling the timers")
}

var installSystemdCmd = &cobra.Command{
	Use:   "install-systemd",
	Short: "Install systemd service and timer units",
	RunE:  runInstallSystemd,
}

func runInstallSystemd(cmd *cobra.Command, args []string) error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("install-systemd is only supported on Linux")
	}
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	opts := systemd.GeneratorOptions{
		Binary:     installSystemdBinary,
		ConfigPath: config.ResolveConfigPath(),
		EnvFile:    installSystemdEnvFile,
		Hardening:  installSystemdHardening,
	}

	var timers []string
	for _, job := range cfg.Jobs {
		if !job.Enabled || job.Schedule == nil {
			continue
		}
		units, err := systemd.Generate(job, opts)
		if err != nil {
			return err
		}
		if err := units.Write(installSystemdUnitDir); err != nil {
			return err
		}
		timers = append(timers, units.TimerName)
		cmd.Printf("Wrote %s and %s for job %s\n", units.ServiceName, units.TimerName, job.Name)
	}
	if len(timers) == 0 {
		cmd.Println("No enabled jobs with schedule to install")
		return nil
	}

	if err := exec.Command("systemctl", "daemon-reload").Run(); err != nil {
		return fmt.Errorf("systemctl daemon-reload: %w", err)
	}
	if installSystemdNoEnable {
		return nil
	}
	for _, t := range timers {
		if err := exec.Command("systemctl", "enable", "--now", t).Run(); err != nil {
			return fmt.Errorf("systemctl enable %s: %w", t, err)
		}
		cmd.Printf("Enabled %s\n", t)
	}
	return nil
}
