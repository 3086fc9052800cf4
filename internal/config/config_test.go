package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	if len(cfg.Categories) == 0 {
		t.Error("expected at least one default category")
	}
	if cfg.RateFloor == "" {
		t.Error("expected rate_floor to be set")
	}
	if cfg.BatchSize() != 5 {
		t.Errorf("expected default page size 5, got %d", cfg.BatchSize())
	}
}

func TestRateFloorDuration(t *testing.T) {
	cfg := &Config{RateFloor: "250ms"}
	if d := cfg.RateFloorDuration(); d != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", d)
	}

	cfg.RateFloor = "invalid"
	if d := cfg.RateFloorDuration(); d != 500*time.Millisecond {
		t.Errorf("expected 500ms default for invalid value, got %v", d)
	}
}

func TestCacheTTLDuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"10s", 10 * time.Second},
		{"1m", time.Minute},
		{"", 30 * time.Second},
		{"invalid", 30 * time.Second},
	}
	for _, tt := range tests {
		cfg := &Config{CacheTTL: tt.input}
		if got := cfg.CacheTTLDuration(); got != tt.want {
			t.Errorf("CacheTTLDuration(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAccessorDefaults(t *testing.T) {
	cfg := &Config{}
	if cfg.Lang() != "en" {
		t.Errorf("expected en, got %s", cfg.Lang())
	}
	if cfg.Retries() != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.Retries())
	}
	if cfg.Preload() != 3 {
		t.Errorf("expected preload 3, got %d", cfg.Preload())
	}
	if cfg.CardExtent() != 6 {
		t.Errorf("expected card extent 6, got %d", cfg.CardExtent())
	}
	if cfg.PullRows() != 3 {
		t.Errorf("expected pull threshold 3, got %d", cfg.PullRows())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := `language: de
page_size: 10
rate_floor: 1s
categories:
  - Kunst
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Lang() != "de" {
		t.Errorf("expected de, got %s", cfg.Lang())
	}
	if cfg.BatchSize() != 10 {
		t.Errorf("expected page size 10, got %d", cfg.BatchSize())
	}
	if len(cfg.Categories) != 1 || cfg.Categories[0] != "Kunst" {
		t.Errorf("unexpected categories: %v", cfg.Categories)
	}
}

func TestLoadNonexistentFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "config.yaml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Categories) == 0 {
		t.Error("expected default categories when config doesn't exist")
	}
	// First run writes the defaults next to where the config was expected.
	if _, err := os.Stat(cfgPath); err != nil {
		t.Errorf("expected defaults to be written on first run: %v", err)
	}
}

func TestValidateBadRateFloor(t *testing.T) {
	cfg := &Config{RateFloor: "fast"}
	if err := validate(cfg); err == nil {
		t.Error("expected error for unparseable rate_floor")
	}
}

func TestValidateBadPageSize(t *testing.T) {
	cfg := &Config{PageSize: 500}
	if err := validate(cfg); err == nil {
		t.Error("expected error for out-of-range page_size")
	}
}

func TestValidateEmptyCategory(t *testing.T) {
	cfg := &Config{Categories: []string{"Physics", ""}}
	if err := validate(cfg); err == nil {
		t.Error("expected error for empty category name")
	}
}
