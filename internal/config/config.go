// Package config loads the application configuration from a TOML file,
// filling in defaults for anything the file omits.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"scribe/internal/gateway"
)

// BackupConfig controls the scheduled JSON export.
type BackupConfig struct {
	Schedule string `toml:"schedule"` // cron expression; empty disables
	Dir      string `toml:"dir"`
}

// Config is the full application configuration.
type Config struct {
	DataDir string         `toml:"data_dir"`
	Store   gateway.Config `toml:"store"`
	Backup  BackupConfig   `toml:"backup"`
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "scribe", "config.toml")
}

// Default returns the configuration used when no file exists: a local
// SQLite store under the user data dir.
func Default() Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "scribe")
	return Config{
		DataDir: dataDir,
		Store: gateway.Config{
			Driver: gateway.DriverSQLite,
			Path:   filepath.Join(dataDir, "scribe.db"),
		},
		Backup: BackupConfig{
			Dir: filepath.Join(dataDir, "backups"),
		},
	}
}

// Load reads the TOML file at path, layering it over the defaults.
// A missing file is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	// The file decides the sqlite path; the default would otherwise shadow
	// a data_dir override.
	cfg.Store.Path = ""
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Store.Driver == gateway.DriverSQLite && cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(cfg.DataDir, "scribe.db")
	}
	return cfg, nil
}
