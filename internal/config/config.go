package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Player  PlayerConfig  `toml:"player"`
	Library LibraryConfig `toml:"library"`
	Logging LoggingConfig `toml:"logging"`
}

// PlayerConfig contains playback defaults for new engines
type PlayerConfig struct {
	Volume               float64 `toml:"volume"`
	Muted                bool    `toml:"muted"`
	PlaybackRate         float64 `toml:"playback_rate"`
	LoopMode             string  `toml:"loop_mode"` // none, single, list, random
	ExclusivePlayback    bool    `toml:"exclusive_playback"`
	TimeUpdateIntervalMs int     `toml:"time_update_interval_ms"`
}

// LibraryConfig contains media library configuration
type LibraryConfig struct {
	Path             string   `toml:"path"`
	DatabasePath     string   `toml:"database_path"`
	SupportedFormats []string `toml:"supported_formats"`
	WatchForChanges  bool     `toml:"watch_for_changes"`
	ScanOnStartup    bool     `toml:"scan_on_startup"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Player: PlayerConfig{
			Volume:               1.0,
			Muted:                false,
			PlaybackRate:         1.0,
			LoopMode:             "none",
			ExclusivePlayback:    true,
			TimeUpdateIntervalMs: 250,
		},
		Library: LibraryConfig{
			Path:             "./music",
			DatabasePath:     "./cadenza.db",
			SupportedFormats: []string{".mp3", ".flac", ".wav", ".ogg"},
			WatchForChanges:  true,
			ScanOnStartup:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating it with
// defaults when missing. A .env file next to the config overrides nothing
// here directly but makes env vars available to the process.
func LoadConfig(path string) (*Config, error) {
	// Best effort: a missing .env is not an error
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveConfig(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the configuration to a TOML file
func SaveConfig(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Validate checks configuration bounds
func (c *Config) Validate() error {
	if c.Player.Volume < 0 || c.Player.Volume > 1 {
		return fmt.Errorf("player.volume must be within [0, 1], got %g", c.Player.Volume)
	}
	if c.Player.PlaybackRate < 0.25 || c.Player.PlaybackRate > 2 {
		return fmt.Errorf("player.playback_rate must be within [0.25, 2], got %g", c.Player.PlaybackRate)
	}
	switch c.Player.LoopMode {
	case "none", "single", "list", "random":
	default:
		return fmt.Errorf("player.loop_mode must be one of none, single, list, random; got %q", c.Player.LoopMode)
	}
	if c.Player.TimeUpdateIntervalMs < 0 {
		return fmt.Errorf("player.time_update_interval_ms must not be negative")
	}
	return nil
}
