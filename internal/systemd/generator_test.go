package systemd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"S3Joiner/internal/config"
)

func TestGenerate_ServiceAndTimer(t *testing.T) {
	job := config.JobConfig{
		Name:     "clicks",
		Enabled:  true,
		Schedule: &config.ScheduleConfig{Period: "day", Times: 1, JitterMinutes: 5},
	}
	units, err := Generate(job, GeneratorOptions{
		Binary:     "/usr/local/bin/s3joiner",
		ConfigPath: "/etc/s3joiner/prod.yaml",
		EnvFile:    "/etc/s3joiner/secrets.env",
		Hardening:  true,
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"[Service]",
		"Type=oneshot",
		"ExecStart=/usr/local/bin/s3joiner run --job clicks",
		"Environment=S3JOINER_CONFIG=/etc/s3joiner/prod.yaml",
		"EnvironmentFile=-/etc/s3joiner/secrets.env",
		"ProtectSystem=full",
	} {
		if !strings.Contains(units.Service, want) {
			t.Errorf("service missing %q:\n%s", want, units.Service)
		}
	}
	for _, want := range []string{
		"Requires=s3joiner-clicks.service",
		"OnCalendar=*-*-* 02:00:00",
		"RandomizedDelaySec=300",
		"Persistent=yes",
	} {
		if !strings.Contains(units.Timer, want) {
			t.Errorf("timer missing %q:\n%s", want, units.Timer)
		}
	}
}

func TestGenerate_Defaults(t *testing.T) {
	job := config.JobConfig{Name: "x", Schedule: &config.ScheduleConfig{Times: 1}}
	units, err := Generate(job, GeneratorOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(units.Service, "ExecStart="+DefaultBinary+" run --job x") {
		t.Errorf("service = %s", units.Service)
	}
	if strings.Contains(units.Service, "ProtectSystem") || strings.Contains(units.Service, "EnvironmentFile") {
		t.Error("optional sections should be omitted")
	}
	if strings.Contains(units.Timer, "RandomizedDelaySec") {
		t.Error("no jitter configured")
	}
}

func TestGenerate_NoSchedule_Error(t *testing.T) {
	if _, err := Generate(config.JobConfig{Name: "x"}, GeneratorOptions{}); err == nil {
		t.Error("expected error for job without schedule")
	}
}

func TestGeneratedUnits_Write(t *testing.T) {
	dir := t.TempDir()
	job := config.JobConfig{Name: "clicks", Schedule: &config.ScheduleConfig{Times: 1}}
	units, err := Generate(job, GeneratorOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := units.Write(dir); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"s3joiner-clicks.service", "s3joiner-clicks.timer"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestUnitFileNames(t *testing.T) {
	svc, timer := UnitFileNames("my job.v2")
	if svc != "s3joiner-my-job-v2.service" || timer != "s3joiner-my-job-v2.timer" {
		t.Errorf("UnitFileNames = %q, %q", svc, timer)
	}
}

func TestSanitizeUnitName(t *testing.T) {
	if got := sanitizeUnitName("clicks-prod"); got != "clicks-prod" {
		t.Errorf("sanitize clicks-prod = %q", got)
	}
	if got := sanitizeUnitName("my job"); got != "my-job" {
		t.Errorf("sanitize 'my job' = %q", got)
	}
	if got := sanitizeUnitName(""); got != "default" {
		t.Errorf("sanitize empty = %q", got)
	}
}
