package config

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrInvalidDriver      = errors.New("invalid storage driver: must be 's3' or 'blob'")
	ErrInvalidJobName     = errors.New("invalid job name")
	ErrDuplicateJob       = errors.New("duplicate job name")
	ErrInvalidCompression = errors.New("invalid compression: must be 'none', 'gz' or 'zst'")
)

var jobNameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Validate checks cfg and fills in defaults: prefixes are normalized and
// empty job fields get the kinesis-output/ -> lambda-output/*.csv layout.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	switch driver := StorageDriver(cfg); driver {
	case DriverS3:
		if cfg.S3 != nil {
			cfg.S3.Prefix = NormalizePrefix(cfg.S3.Prefix)
		}
	case DriverBlob:
		if cfg.Storage.URL == "" {
			return fmt.Errorf("storage.url is required for the blob driver")
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidDriver, driver)
	}

	seen := make(map[string]struct{}, len(cfg.Jobs))
	for i := range cfg.Jobs {
		job := &cfg.Jobs[i]
		if !jobNameRe.MatchString(job.Name) {
			return fmt.Errorf("%w: %q (allowed: letters, digits, '.', '_', '-')", ErrInvalidJobName, job.Name)
		}
		if _, dup := seen[job.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateJob, job.Name)
		}
		seen[job.Name] = struct{}{}
		if err := validateJob(job); err != nil {
			return fmt.Errorf("job %q: %w", job.Name, err)
		}
	}
	return nil
}

func validateJob(job *JobConfig) error {
	job.InputPrefix = NormalizeKeyPrefix(job.InputPrefix)
	if job.InputPrefix == "" {
		job.InputPrefix = DefaultInputPrefix
	}
	job.OutputPrefix = NormalizeKeyPrefix(job.OutputPrefix)
	if job.OutputPrefix == "" {
		job.OutputPrefix = DefaultOutputPrefix
	}
	if job.OutputExt == "" {
		job.OutputExt = DefaultOutputExt
	}
	if job.OutputExt[0] != '.' {
		job.OutputExt = "." + job.OutputExt
	}
	if job.DayOffset != nil && *job.DayOffset < 0 {
		return fmt.Errorf("day_offset must be >= 0, got %d", *job.DayOffset)
	}
	switch job.Compression {
	case "":
		job.Compression = CompressionNone
	case CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidCompression, job.Compression)
	}
	if job.Lock != nil && job.Lock.TTLMinutes < 0 {
		return fmt.Errorf("lock.ttl_minutes must be >= 0")
	}
	return nil
}
