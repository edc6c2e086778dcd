// Package config loads the host's TOML configuration file.
//
// Per-module admin settings live under [modules.<id>] tables. Values are
// coerced to strings and handed to modules verbatim through the config-get
// host function; nothing gates access, the admin gates it by choosing what
// to write.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/burakkaraceylan/vessel/verrors"
)

const (
	DefaultHost   = "127.0.0.1"
	DefaultPort   = 8000
	DefaultWSPort = 8001
)

type Config struct {
	Host    string                    `toml:"host"`
	Port    int                       `toml:"port"`
	WSPort  int                       `toml:"ws_port"`
	DataDir string                    `toml:"data_dir"`
	Modules map[string]map[string]any `toml:"modules"`
}

// Load reads and parses the configuration file, applying defaults for
// anything omitted.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, verrors.IO(verrors.PhaseLoad, "reading "+path, err)
	}
	var c Config
	if err := toml.Unmarshal(raw, &c); err != nil {
		return nil, verrors.Malformed(verrors.PhaseLoad, "parsing "+path, err)
	}
	c.applyDefaults()
	return &c, nil
}

// Default returns a configuration with every default applied, for running
// without a config file.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.WSPort == 0 {
		c.WSPort = DefaultWSPort
	}
	if c.DataDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.DataDir = filepath.Join(dir, "vessel")
		} else {
			c.DataDir = "."
		}
	}
	if c.Modules == nil {
		c.Modules = make(map[string]map[string]any)
	}
}

// ModulesDir returns the directory scanned for installed wasm modules.
func (c *Config) ModulesDir() string {
	return filepath.Join(c.DataDir, "modules")
}

// ModuleStrings returns the [modules.<id>] table with every value coerced to
// a string, or an empty map when the table is absent.
func (c *Config) ModuleStrings(id string) map[string]string {
	table := c.Modules[id]
	out := make(map[string]string, len(table))
	for k, v := range table {
		out[k] = coerce(v)
	}
	return out
}

func coerce(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}
