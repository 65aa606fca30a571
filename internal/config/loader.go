package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// secretKeys can be supplied through the environment instead of the config
// file, e.g. S3JOINER_S3_SECRET_KEY.
var secretKeys = []string{
	"s3.access_key",
	"s3.secret_key",
	"storage.url",
	"notifications.discord.webhook_url",
	"metrics.pushgateway_url",
}

// Load reads the YAML config. A dotenv file, if present, is loaded into the
// process environment first without overriding variables that are already set.
func Load(checkPerms bool) (*viper.Viper, error) {
	if err := loadEnvFile(ResolveEnvFile()); err != nil {
		return nil, err
	}

	path := ResolveConfigPath()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range secretKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if checkPerms {
		if err := checkConfigPermissions(path); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return v, nil
}

// LoadAndValidate is the common Load, Unmarshal, Validate sequence.
func LoadAndValidate(checkPerms bool) (*Config, error) {
	v, err := Load(checkPerms)
	if err != nil {
		return nil, err
	}
	cfg, err := Unmarshal(v)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func checkConfigPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	mode := info.Mode().Perm()

	if mode&0077 != 0 {
		return fmt.Errorf("config file %s has overly permissive mode %s (recommended: 0600)", path, mode)
	}
	return nil
}
