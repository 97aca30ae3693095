package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all rapport configuration. Values come from defaults,
// then the config file, then RAPPORT_* environment overrides, in that
// order.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
	Export   ExportConfig   `toml:"export"`
}

type ServerConfig struct {
	Bind   string `toml:"bind"`
	Port   int    `toml:"port"`
	APIKey string `toml:"api_key"`

	// Requests allowed per client per window. Zero disables limiting,
	// as does RateLimitOff.
	RateLimit      int  `toml:"rate_limit"`
	RateWindowSecs int  `toml:"rate_window_secs"`
	RateLimitOff   bool `toml:"rate_limit_off"`
}

type DatabaseConfig struct {
	Path string `toml:"path"` // empty means store.DefaultDBPath()
}

type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

type ExportConfig struct {
	Compress bool `toml:"compress"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind:           "127.0.0.1",
			Port:           7575,
			RateLimit:      100,
			RateWindowSecs: 60,
		},
		Database: DatabaseConfig{
			Path: "",
		},
		Log: LogConfig{
			Level: "info",
		},
		Export: ExportConfig{
			Compress: true,
		},
	}
}

// Load reads config from the standard path, falling back to defaults,
// then applies environment overrides.
func Load() (Config, error) {
	cfg := Default()

	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}

	cfg.applyEnv()
	cfg.Database.Path = expandHome(cfg.Database.Path)

	return cfg, nil
}

// applyEnv overlays RAPPORT_* environment variables onto the config.
func (c *Config) applyEnv() {
	if v := os.Getenv("RAPPORT_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("RAPPORT_ADDR"); v != "" {
		c.Server.Bind = v
	}
	if v := os.Getenv("RAPPORT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("RAPPORT_API_KEY"); v != "" {
		c.Server.APIKey = v
	}
	if v := os.Getenv("RAPPORT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("RAPPORT_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.RateLimit = n
		}
	}
	if v := os.Getenv("RAPPORT_RATE_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.RateWindowSecs = n
		}
	}
	if v := os.Getenv("RAPPORT_RATE_LIMIT_OFF"); v != "" {
		c.Server.RateLimitOff = parseBool(v)
	}
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// RateWindow returns the rate limit window as a duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.Server.RateWindowSecs) * time.Second
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "rapport", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "rapport", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
