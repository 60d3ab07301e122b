package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const configFilename = "printbridge.toml"

// defaultLookupPaths lists, in priority order, where a config file is
// searched for when none is given explicitly.
func defaultLookupPaths() []string {
	paths := []string{filepath.Join(string(os.PathSeparator), "etc", configFilename)}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "printbridge", configFilename))
	}

	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", "printbridge", configFilename))
	}

	return paths
}

// loadConfigFile decodes a TOML or YAML file, picked by extension.
func loadConfigFile(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return fromYamlFile(path)
	default:
		return fromTomlFile(path)
	}
}

func fromTomlFile(path string) (*Config, error) {
	_ = os.Setenv("BURNTSUSHI_TOML_110", "1") // allow new lines in inline tables

	var cfg *Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func fromYamlFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, err
	}

	if m == nil {
		m = map[string]any{}
	}

	cfg := &Config{}
	if err := cfg.UnmarshalTOML(m); err != nil {
		return nil, err
	}

	return cfg, nil
}

func searchConfigFile(customPath string, lookupPaths []string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err != nil {
			return "", fmt.Errorf("no such file: %s", customPath)
		}

		return customPath, nil
	}

	for _, p := range lookupPaths {
		if p == "" {
			continue
		}

		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	// a missing config file is not an error
	return "", nil
}
