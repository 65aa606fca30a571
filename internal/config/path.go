package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultConfigDir  = "/etc/s3joiner"
	DefaultConfigName = "config.yaml"
	DefaultEnvFile    = ".env"
)

const (
	EnvConfigPath = "S3JOINER_CONFIG"
	EnvEnvFile    = "S3JOINER_ENV_FILE"
	EnvPrefix     = "S3JOINER"
)

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir, DefaultConfigName)
}

func ResolveConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath()
}

func ResolveEnvFile() string {
	if p := os.Getenv(EnvEnvFile); p != "" {
		return p
	}
	return DefaultEnvFile
}
