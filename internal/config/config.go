package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

type Config struct {
	Language        string   `yaml:"language"`
	PageSize        int      `yaml:"page_size"`
	RateFloor       string   `yaml:"rate_floor"`
	RetryMax        int      `yaml:"retry_max"`
	CacheTTL        string   `yaml:"cache_ttl"`
	PreloadDistance int      `yaml:"preload_distance"`
	Overscan        int      `yaml:"overscan"`
	ItemExtent      int      `yaml:"item_extent"`
	PullThreshold   int      `yaml:"pull_threshold"`
	Categories      []string `yaml:"categories"`
}

func (c *Config) Lang() string {
	if c.Language == "" {
		return "en"
	}
	return c.Language
}

func (c *Config) BatchSize() int {
	if c.PageSize <= 0 {
		return 5
	}
	return c.PageSize
}

// RateFloorDuration is the minimum spacing between outbound request
// starts, shared across every stream.
func (c *Config) RateFloorDuration() time.Duration {
	d, err := time.ParseDuration(c.RateFloor)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

func (c *Config) CacheTTLDuration() time.Duration {
	if c.CacheTTL == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d < 0 {
		return 30 * time.Second
	}
	return d
}

func (c *Config) Retries() int {
	if c.RetryMax <= 0 {
		return 3
	}
	return c.RetryMax
}

func (c *Config) Preload() int {
	if c.PreloadDistance <= 0 {
		return 3
	}
	return c.PreloadDistance
}

func (c *Config) OverscanRows() int {
	if c.Overscan < 0 {
		return 2
	}
	return c.Overscan
}

// CardExtent is the height of one feed card in terminal rows.
func (c *Config) CardExtent() int {
	if c.ItemExtent <= 0 {
		return 6
	}
	return c.ItemExtent
}

// PullRows is how many overscroll steps at the top count as
// pull-to-refresh.
func (c *Config) PullRows() int {
	if c.PullThreshold <= 0 {
		return 3
	}
	return c.PullThreshold
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "wikiscroll", "config.yaml")
}

func StorePath() string {
	return filepath.Join(xdg.DataHome, "wikiscroll", "wikiscroll.db")
}

func LogPath() string {
	return filepath.Join(xdg.StateHome, "wikiscroll", "wikiscroll.log")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Write defaults to config path on first run
			if err := writeDefaults(path); err != nil {
				// Non-fatal: just use embedded defaults
				return defaults, nil
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	if cfg.RateFloor != "" {
		if _, err := time.ParseDuration(cfg.RateFloor); err != nil {
			return fmt.Errorf("invalid rate_floor %q: %w", cfg.RateFloor, err)
		}
	}
	if cfg.CacheTTL != "" {
		if _, err := time.ParseDuration(cfg.CacheTTL); err != nil {
			return fmt.Errorf("invalid cache_ttl %q: %w", cfg.CacheTTL, err)
		}
	}
	if cfg.PageSize < 0 || cfg.PageSize > 50 {
		return fmt.Errorf("page_size must be between 0 and 50, got %d", cfg.PageSize)
	}
	for i, c := range cfg.Categories {
		if c == "" {
			return fmt.Errorf("category %d: name is required", i)
		}
	}
	return nil
}
