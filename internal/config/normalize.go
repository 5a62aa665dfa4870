package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeTokens()
	c.normalizeMedia()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		c.Paths.StorageDir = defaultStorageDir
	}
	if c.Paths.StorageDir, err = expandPath(c.Paths.StorageDir); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("CLIPVAULT_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	c.API.PublicURL = strings.TrimSpace(c.API.PublicURL)
	if c.API.PublicURL == "" {
		if value, ok := os.LookupEnv("CLIPVAULT_PUBLIC_URL"); ok {
			c.API.PublicURL = strings.TrimSpace(value)
		}
	}
	if c.API.PublicURL == "" {
		c.API.PublicURL = "http://" + c.API.Bind
	}
	c.API.PublicURL = strings.TrimRight(c.API.PublicURL, "/")
	if c.API.UploadRatePerMinute < 0 {
		c.API.UploadRatePerMinute = 0
	}
}

func (c *Config) normalizeTokens() {
	c.Tokens.Secret = strings.TrimSpace(c.Tokens.Secret)
	if c.Tokens.Secret == "" {
		if value, ok := os.LookupEnv("CLIPVAULT_TOKEN_SECRET"); ok {
			c.Tokens.Secret = strings.TrimSpace(value)
		}
	}
	if c.Tokens.TTLSeconds == 0 {
		c.Tokens.TTLSeconds = defaultTokenTTLSeconds
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Media.MaxUploadMiB == 0 {
		c.Media.MaxUploadMiB = defaultMaxUploadMiB
	}
	if c.Media.TranscodeTimeoutSeconds == 0 {
		c.Media.TranscodeTimeoutSeconds = defaultTranscodeTimeoutSeconds
	}

	exts := make([]string, 0, len(c.Media.AllowedExtensions))
	seen := make(map[string]struct{}, len(c.Media.AllowedExtensions))
	for _, ext := range c.Media.AllowedExtensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultAllowedExtensions...)
	}
	c.Media.AllowedExtensions = exts
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
