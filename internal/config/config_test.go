package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Player.Volume != 1.0 {
		t.Errorf("Volume = %g, want 1.0", cfg.Player.Volume)
	}
	if cfg.Player.LoopMode != "none" {
		t.Errorf("LoopMode = %q, want none", cfg.Player.LoopMode)
	}
	if !cfg.Player.ExclusivePlayback {
		t.Error("Expected exclusive playback by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config failed validation: %v", err)
	}
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Player.Volume != 1.0 {
		t.Errorf("Volume = %g, want default 1.0", cfg.Player.Volume)
	}

	// The file was written so a second load reads it back
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected config file created: %v", err)
	}
	again, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Second LoadConfig failed: %v", err)
	}
	if again.Player != cfg.Player || again.Logging != cfg.Logging {
		t.Errorf("Reloaded config differs: %+v vs %+v", again, cfg)
	}
}

func TestLoadConfigParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[player]
volume = 0.5
muted = true
playback_rate = 1.5
loop_mode = "list"
exclusive_playback = false
time_update_interval_ms = 100

[library]
path = "/srv/media"
database_path = "/srv/media.db"
supported_formats = [".mp3", ".flac"]

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Player.Volume != 0.5 || !cfg.Player.Muted || cfg.Player.PlaybackRate != 1.5 {
		t.Errorf("Unexpected player config: %+v", cfg.Player)
	}
	if cfg.Player.LoopMode != "list" || cfg.Player.ExclusivePlayback {
		t.Errorf("Unexpected player config: %+v", cfg.Player)
	}
	if cfg.Library.Path != "/srv/media" {
		t.Errorf("Library path = %q", cfg.Library.Path)
	}
	if len(cfg.Library.SupportedFormats) != 2 {
		t.Errorf("SupportedFormats = %v", cfg.Library.SupportedFormats)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Unexpected logging config: %+v", cfg.Logging)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"volume too high", func(c *Config) { c.Player.Volume = 1.5 }},
		{"volume negative", func(c *Config) { c.Player.Volume = -0.1 }},
		{"rate too low", func(c *Config) { c.Player.PlaybackRate = 0.1 }},
		{"rate too high", func(c *Config) { c.Player.PlaybackRate = 3 }},
		{"unknown loop mode", func(c *Config) { c.Player.LoopMode = "shuffle" }},
		{"negative interval", func(c *Config) { c.Player.TimeUpdateIntervalMs = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[player]\nvolume = 9.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected out-of-range config rejected")
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.toml")

	cfg := DefaultConfig()
	cfg.Player.Volume = 0.75
	cfg.Library.Path = "/tmp/media"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Player.Volume != 0.75 || loaded.Library.Path != "/tmp/media" {
		t.Errorf("Round trip lost values: %+v", loaded)
	}
}
