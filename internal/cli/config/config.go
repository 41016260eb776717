// Package config loads the terminal client's settings from
// ~/.config/commune/config.toml, falling back to built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved client configuration.
type Config struct {
	APIBaseURL       string
	Timeout          time.Duration
	LogFile          string
	LogLevel         string
	ScrollGuardDelay time.Duration

	// Dir holds config.toml and the credentials file.
	Dir  string
	File string
}

// CredentialsPath is where the login token is stored.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.Dir, "credentials")
}

// DefaultDir returns the platform config directory for the client.
func DefaultDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, "commune"), nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "commune"), nil
}

// Load reads path, or config.toml in DefaultDir when path is empty. A
// missing file is not an error. COMMUNE_* environment variables override
// file values, e.g. COMMUNE_API_BASE_URL.
func Load(path string) (*Config, error) {
	dir := filepath.Dir(path)
	if path == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.toml")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(path)
	v.SetEnvPrefix("commune")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(dir, "commune.log"))
	v.SetDefault("tui.scroll_guard_delay", "50ms")

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		APIBaseURL:       v.GetString("api.base_url"),
		Timeout:          v.GetDuration("api.timeout"),
		LogFile:          expandPath(v.GetString("log.file")),
		LogLevel:         v.GetString("log.level"),
		ScrollGuardDelay: v.GetDuration("tui.scroll_guard_delay"),
		Dir:              dir,
		File:             path,
	}, nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
