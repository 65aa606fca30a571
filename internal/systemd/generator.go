package systemd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"S3Joiner/internal/config"
	"S3Joiner/internal/schedule"
)

const (
	DefaultUnitDir    = "/etc/systemd/system"
	DefaultBinary     = "/usr/bin/s3joiner"
	DefaultConfigPath = "/etc/s3joiner/config.yaml"
	unitPrefix        = "s3joiner-"
)

type GeneratorOptions struct {
	Binary     string
	ConfigPath string
	// EnvFile is passed as EnvironmentFile=- so secrets can stay out of the config.
	EnvFile   string
	Hardening bool
}

type GeneratedUnits struct {
	ServiceName string
	TimerName   string
	Service     string
	Timer       string
}

// UnitFileNames returns the service and timer file names for a job.
func UnitFileNames(jobName string) (service, timer string) {
	base := unitPrefix + sanitizeUnitName(jobName)
	return base + ".service", base + ".timer"
}

func Generate(job config.JobConfig, opts GeneratorOptions) (*GeneratedUnits, error) {
	if job.Schedule == nil {
		return nil, fmt.Errorf("job %q has no schedule", job.Name)
	}
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = DefaultConfigPath
	}

	svcName, timerName := UnitFileNames(job.Name)
	return &GeneratedUnits{
		ServiceName: svcName,
		TimerName:   timerName,
		Service:     buildService(job.Name, opts),
		Timer:       buildTimer(job.Name, svcName, job.Schedule),
	}, nil
}

// Write stores the units in dir with mode 0644.
func (u *GeneratedUnits) Write(dir string) error {
	for name, body := range map[string]string{u.ServiceName: u.Service, u.TimerName: u.Timer} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func buildService(jobName string, opts GeneratorOptions) string {
	var b strings.Builder

	b.WriteString("[Unit]\n")
	fmt.Fprintf(&b, "Description=S3Joiner join for job %s\n", jobName)
	b.WriteString("After=network-online.target\n")
	b.WriteString("Wants=network-online.target\n\n")

	b.WriteString("[Service]\n")
	b.WriteString("Type=oneshot\n")
	fmt.Fprintf(&b, "ExecStart=%s run --job %s\n", opts.Binary, jobName)
	fmt.Fprintf(&b, "Environment=%s=%s\n", config.EnvConfigPath, opts.ConfigPath)
	if opts.EnvFile != "" {
		fmt.Fprintf(&b, "Environment=%s=%s\n", config.EnvEnvFile, opts.EnvFile)
		fmt.Fprintf(&b, "EnvironmentFile=-%s\n", opts.EnvFile)
	}

	if opts.Hardening {
		b.WriteString("ProtectSystem=full\n")
		b.WriteString("ProtectHome=read-only\n")
		b.WriteString("PrivateTmp=yes\n")
		b.WriteString("NoNewPrivileges=yes\n")
		b.WriteString("ProtectKernelTunables=yes\n")
		b.WriteString("ProtectKernelModules=yes\n")
		b.WriteString("ProtectControlGroups=yes\n")
		b.WriteString("RestrictRealtime=yes\n")
		b.WriteString("RestrictSUIDSGID=yes\n")
		b.WriteString("LockPersonality=yes\n")
		b.WriteString("ProtectClock=yes\n")
		b.WriteString("ProtectHostname=yes\n")
		b.WriteString("ProtectKernelLogs=yes\n")
		b.WriteString("RestrictNamespaces=yes\n")
		b.WriteString("RestrictAddressFamilies=AF_UNIX AF_INET AF_INET6\n")
	}

	b.WriteString("\n[Install]\n")
	b.WriteString("WantedBy=multi-user.target\n")
	return b.String()
}

func buildTimer(jobName, serviceName string, s *config.ScheduleConfig) string {
	var b strings.Builder

	b.WriteString("[Unit]\n")
	fmt.Fprintf(&b, "Description=S3Joiner timer for job %s\n", jobName)
	fmt.Fprintf(&b, "Requires=%s\n\n", serviceName)

	b.WriteString("[Timer]\n")
	for _, c := range schedule.OnCalendar(s) {
		b.WriteString("OnCalendar=" + c + "\n")
	}
	if s.JitterMinutes > 0 {
		fmt.Fprintf(&b, "RandomizedDelaySec=%d\n", s.JitterMinutes*60)
	}
	b.WriteString("Persistent=yes\n\n")

	b.WriteString("[Install]\n")
	b.WriteString("WantedBy=timers.target\n")
	return b.String()
}

func sanitizeUnitName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else if r == ' ' || r == '.' {
			b.WriteRune('-')
		}
	}
	s := b.String()
	if s == "" {
		return "default"
	}
	return s
}
