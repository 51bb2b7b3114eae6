package core

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ConfigEnv names the environment variable that overrides the config path.
const ConfigEnv = "IFEX_CONFIG"

// Config holds the user's persistent settings.
type Config struct {
	// Verify re-reads every JPEG after writing and compares the text
	// fields with what was requested.
	Verify bool `json:"verify"`
	// TruncateAt is the number of characters a readout value is cut to.
	TruncateAt int `json:"truncate_at"`
	// Workers is the number of files processed concurrently in a batch.
	Workers int `json:"workers"`
	// SpreadCaptureTimes gives every file of a batch apply a capture time
	// one second after the previous one.
	SpreadCaptureTimes bool `json:"spread_capture_times"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() Config {
	return Config{Verify: true, TruncateAt: 50, Workers: 1}
}

// ConfigPath returns $IFEX_CONFIG, or ifex.json in the user config
// directory.
func ConfigPath() (string, error) {
	if p := os.Getenv(ConfigEnv); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "locate config directory")
	}
	return filepath.Join(dir, "ifex.json"), nil
}

// LoadConfig reads the config from ConfigPath. A missing file yields the
// defaults.
func LoadConfig() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile reads the config at path, filling unset fields with
// defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), errors.Wrapf(err, "parse config %s", path)
	}
	if cfg.TruncateAt <= 0 {
		cfg.TruncateAt = DefaultConfig().TruncateAt
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// Save writes cfg to path as indented JSON, creating the directory if
// needed.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return errors.Wrapf(os.WriteFile(path, append(b, '\n'), 0644), "write config %s", path)
}
