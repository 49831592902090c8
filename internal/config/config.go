package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.planvite/config.toml.
type Config struct {
	DefaultSession   string `toml:"default_session"`
	UserID           string `toml:"user_id"`
	PageSize         int    `toml:"page_size"`
	MaxMessageLength int    `toml:"max_message_length"`
	RetryAttempts    int    `toml:"retry_attempts"`
}

// Default returns the config defaults applied when fields are unset.
func Default() Config {
	return Config{
		PageSize:         20,
		MaxMessageLength: 2000,
		RetryAttempts:    3,
	}
}

// Load reads config from the given path, filling unset fields with defaults.
// Returns an error if the file is missing or malformed.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = Default().PageSize
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = Default().MaxMessageLength
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = Default().RetryAttempts
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
