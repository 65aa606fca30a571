package config

import "github.com/spf13/viper"

const (
	DriverS3   = "s3"
	DriverBlob = "blob"
)

const (
	CompressionNone = "none"
	CompressionGzip = "gz"
	CompressionZstd = "zst"
)

const (
	DefaultInputPrefix  = "kinesis-output/"
	DefaultOutputPrefix = "lambda-output/"
	DefaultOutputExt    = ".csv"
	DefaultDayOffset    = 1
)

type Config struct {
	Storage       *StorageConfig       `mapstructure:"storage" yaml:"storage,omitempty"`
	S3            *S3Config            `mapstructure:"s3" yaml:"s3,omitempty"`
	Jobs          []JobConfig          `mapstructure:"jobs" yaml:"jobs,omitempty"`
	Notifications *NotificationsConfig `mapstructure:"notifications" yaml:"notifications,omitempty"`
	Metrics       *MetricsConfig       `mapstructure:"metrics" yaml:"metrics,omitempty"`
	Log           *LogConfig           `mapstructure:"log" yaml:"log,omitempty"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver,omitempty"`
	// URL is the gocloud bucket URL used by the blob driver (s3://, gs://, file://, mem://).
	URL string `mapstructure:"url" yaml:"url,omitempty"`
}

type S3Config struct {
	Endpoint                string     `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Region                  string     `mapstructure:"region" yaml:"region,omitempty"`
	AccessKey               string     `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey               string     `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	Bucket                  string     `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Prefix                  string     `mapstructure:"prefix" yaml:"prefix,omitempty"`
	PathStyle               *bool      `mapstructure:"path_style" yaml:"path_style,omitempty"`
	DisableRequestChecksums *bool      `mapstructure:"disable_request_checksums" yaml:"disable_request_checksums,omitempty"`
	UnsignedPayload         bool       `mapstructure:"unsigned_payload" yaml:"unsigned_payload,omitempty"`
	PartSizeMB              int        `mapstructure:"part_size_mb" yaml:"part_size_mb,omitempty"`
	TLS                     *TLSConfig `mapstructure:"tls" yaml:"tls,omitempty"`
}

type TLSConfig struct {
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify,omitempty"`
}

type JobConfig struct {
	Name         string `mapstructure:"name" yaml:"name"`
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	InputPrefix  string `mapstructure:"input_prefix" yaml:"input_prefix,omitempty"`
	OutputPrefix string `mapstructure:"output_prefix" yaml:"output_prefix,omitempty"`
	OutputExt    string `mapstructure:"output_ext" yaml:"output_ext,omitempty"`
	// DayOffset is how many days before the run date the input shards were written.
	DayOffset   *int             `mapstructure:"day_offset" yaml:"day_offset,omitempty"`
	Compression string           `mapstructure:"compression" yaml:"compression,omitempty"`
	AllowEmpty  bool             `mapstructure:"allow_empty" yaml:"allow_empty,omitempty"`
	Schedule    *ScheduleConfig  `mapstructure:"schedule" yaml:"schedule,omitempty"`
	Retention   *RetentionConfig `mapstructure:"retention" yaml:"retention,omitempty"`
	Lock        *LockConfig      `mapstructure:"lock" yaml:"lock,omitempty"`
}

type ScheduleConfig struct {
	Period        string `mapstructure:"period" yaml:"period,omitempty"`
	Times         int    `mapstructure:"times" yaml:"times,omitempty"`
	JitterMinutes int    `mapstructure:"jitter_minutes" yaml:"jitter_minutes,omitempty"`
}

type RetentionConfig struct {
	Days   int `mapstructure:"days" yaml:"days,omitempty"`
	Weeks  int `mapstructure:"weeks" yaml:"weeks,omitempty"`
	Months int `mapstructure:"months" yaml:"months,omitempty"`
}

type LockConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
	TTLMinutes int  `mapstructure:"ttl_minutes" yaml:"ttl_minutes,omitempty"`
}

type NotificationsConfig struct {
	Enabled *bool          `mapstructure:"enabled" yaml:"enabled,omitempty"`
	Discord *DiscordConfig `mapstructure:"discord" yaml:"discord,omitempty"`
}

type DiscordConfig struct {
	Enabled        bool             `mapstructure:"enabled" yaml:"enabled"`
	WebhookURL     string           `mapstructure:"webhook_url" yaml:"webhook_url,omitempty"`
	TimeoutSeconds int              `mapstructure:"timeout_seconds" yaml:"timeout_seconds,omitempty"`
	Events         []string         `mapstructure:"events" yaml:"events,omitempty"`
	Retry          *DiscordRetry    `mapstructure:"retry" yaml:"retry,omitempty"`
	Mentions       *DiscordMentions `mapstructure:"mentions" yaml:"mentions,omitempty"`
}

type DiscordRetry struct {
	Attempts  int `mapstructure:"attempts" yaml:"attempts,omitempty"`
	BackoffMs int `mapstructure:"backoff_ms" yaml:"backoff_ms,omitempty"`
}

type DiscordMentions struct {
	OnError string `mapstructure:"on_error" yaml:"on_error,omitempty"`
}

type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url" yaml:"pushgateway_url,omitempty"`
	JobLabel       string `mapstructure:"job_label" yaml:"job_label,omitempty"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level,omitempty"`
	Format string `mapstructure:"format" yaml:"format,omitempty"`
}

func Unmarshal(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// StorageDriver returns the configured driver, defaulting to s3.
func StorageDriver(cfg *Config) string {
	if cfg == nil || cfg.Storage == nil || cfg.Storage.Driver == "" {
		return DriverS3
	}
	return cfg.Storage.Driver
}

// S3PathStyle defaults to path-style addressing when a custom endpoint is set (MinIO and friends).
func S3PathStyle(s *S3Config) bool {
	if s == nil {
		return false
	}
	if s.PathStyle != nil {
		return *s.PathStyle
	}
	return s.Endpoint != ""
}

func S3DisableRequestChecksums(s *S3Config) bool {
	if s == nil || s.DisableRequestChecksums == nil {
		return false
	}
	return *s.DisableRequestChecksums
}

func JobDayOffset(j *JobConfig) int {
	if j == nil || j.DayOffset == nil {
		return DefaultDayOffset
	}
	return *j.DayOffset
}

func NotificationsEnabled(n *NotificationsConfig) bool {
	if n == nil {
		return false
	}
	if n.Enabled == nil {
		return true
	}
	return *n.Enabled
}

// FindJob returns the job named name, or nil.
func FindJob(cfg *Config, name string) *JobConfig {
	if cfg == nil {
		return nil
	}
	for i := range cfg.Jobs {
		if cfg.Jobs[i].Name == name {
			return &cfg.Jobs[i]
		}
	}
	return nil
}
