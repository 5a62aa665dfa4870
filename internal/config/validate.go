package config

import (
	"errors"
	"fmt"
	"strings"
)

// minSecretLength is the shortest signing secret accepted for HS256 tokens.
const minSecretLength = 16

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTokens(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	return nil
}

// ValidateServing performs the extra checks needed before the daemon accepts
// requests: a signing secret must be present.
func (c *Config) ValidateServing() error {
	if c.Tokens.Secret == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/clipvault/config.toml"
		}
		return fmt.Errorf("tokens.secret is required. Set CLIPVAULT_TOKEN_SECRET or edit %s (create with 'clipvault config init')", defaultPath)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		return errors.New("paths.storage_dir must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateTokens() error {
	if c.Tokens.TTLSeconds <= 0 {
		return errors.New("tokens.ttl_seconds must be positive")
	}
	if c.Tokens.Secret != "" && len(c.Tokens.Secret) < minSecretLength {
		return fmt.Errorf("tokens.secret must be at least %d characters", minSecretLength)
	}
	return nil
}

func (c *Config) validateMedia() error {
	if err := ensurePositiveMap(map[string]int{
		"media.max_upload_mib":            c.Media.MaxUploadMiB,
		"media.transcode_timeout_seconds": c.Media.TranscodeTimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Media.MinDurationSeconds < 0 {
		return errors.New("media.min_duration_seconds must be >= 0")
	}
	if c.Media.MaxDurationSeconds <= c.Media.MinDurationSeconds {
		return errors.New("media.max_duration_seconds must be greater than media.min_duration_seconds")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
