// Package config loads taskcore's runtime configuration from, in
// ascending precedence: built-in defaults, a TOML config file, and
// environment variables (TASKCORE_-prefixed). Command-line flags, where
// bound by the CLI layer, take precedence over all three.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// defaultFile mirrors the SetDefault calls in Initialize, kept as a
// struct so WriteDefault can render it with BurntSushi/toml's encoder
// instead of hand-formatting TOML text.
type defaultFile struct {
	LockTimeout string `toml:"lock-timeout"`
	Storage     struct {
		Backend string `toml:"backend"`
		Path    string `toml:"path"`
	} `toml:"storage"`
	Routing struct {
		File  string `toml:"file"`
		Watch bool   `toml:"watch"`
	} `toml:"routing"`
	Log struct {
		Level      string `toml:"level"`
		File       string `toml:"file"`
		MaxSizeMB  int    `toml:"max-size-mb"`
		MaxBackups int    `toml:"max-backups"`
	} `toml:"log"`
	Audit struct {
		Dir string `toml:"dir"`
	} `toml:"audit"`
	Deliverable struct {
		SchemaVersion string `toml:"schema-version"`
	} `toml:"deliverable"`
}

var v *viper.Viper

// Initialize sets up the package-level viper instance. It should be
// called once at process startup before any Get* function is used.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("toml")

	configFileSet := false

	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			candidate := filepath.Join(dir, ".taskcore", "config.toml")
			if _, err := os.Stat(candidate); err == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
				break
			}
		}
	}
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			candidate := filepath.Join(configDir, "taskcore", "config.toml")
			if _, err := os.Stat(candidate); err == nil {
				v.SetConfigFile(candidate)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("TASKCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "./taskcore.db")
	v.SetDefault("lock-timeout", "30s")
	v.SetDefault("routing.file", "")
	v.SetDefault("routing.watch", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max-size-mb", 100)
	v.SetDefault("log.max-backups", 5)
	v.SetDefault("audit.dir", ".taskcore")
	v.SetDefault("deliverable.schema-version", "v1.0.0")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a configuration value, used by the CLI layer to apply
// an explicitly-set flag over file/env values.
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// ConfigFileUsed returns the path of the config file that was loaded,
// or "" if none was found.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// AllSettings returns every resolved configuration setting, used by
// the `config show` CLI subcommand.
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}

// WriteDefault materializes a starter config.toml at path, populated
// with the same defaults Initialize applies in memory. Used by the
// `taskctl config init` subcommand for first-time setup.
func WriteDefault(path string) error {
	var d defaultFile
	d.LockTimeout = "30s"
	d.Storage.Backend = "sqlite"
	d.Storage.Path = "./taskcore.db"
	d.Routing.Watch = true
	d.Log.Level = "info"
	d.Log.MaxSizeMB = 100
	d.Log.MaxBackups = 5
	d.Audit.Dir = ".taskcore"
	d.Deliverable.SchemaVersion = "v1.0.0"

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file %s: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	return nil
}
