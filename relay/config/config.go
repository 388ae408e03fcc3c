// Package config assembles the relay configuration: the shared bot core,
// the credential database, the media staging directory and the VK API.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/vkrelay/core/config"
	coredatabase "github.com/m3rciful/vkrelay/core/database"
)

const (
	defaultDownloadsDir = "downloads"
	defaultVKTimeout    = 60
)

// MediaConfig locates staged downloads.
type MediaConfig struct {
	DownloadsDir string `yaml:"downloads_dir" envconfig:"DOWNLOADS_DIR"`
}

// VKConfig tunes the VK API client.
type VKConfig struct {
	APIURL         string `yaml:"api_url" envconfig:"VK_API_URL"`
	APIVersion     string `yaml:"api_version" envconfig:"VK_API_VERSION"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"VK_TIMEOUT_SECONDS"`
}

// Timeout returns the per-request VK timeout.
func (v VKConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Media    MediaConfig         `yaml:"media"`
	VK       VKConfig            `yaml:"vk"`
}

// Load reads the optional YAML file at path, overlays environment variables
// and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	c.Media.DownloadsDir = strings.TrimSpace(c.Media.DownloadsDir)
	if c.Media.DownloadsDir == "" {
		c.Media.DownloadsDir = defaultDownloadsDir
	}

	c.VK.APIURL = strings.TrimRight(strings.TrimSpace(c.VK.APIURL), "/")
	c.VK.APIVersion = strings.TrimSpace(c.VK.APIVersion)
	if c.VK.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: vk.timeout_seconds must not be negative", coreconfig.ErrInvalid)
	}
	if c.VK.TimeoutSeconds == 0 {
		c.VK.TimeoutSeconds = defaultVKTimeout
	}
	return nil
}

// CoreConfig exposes the embedded core configuration to the runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}
