package config

import (
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/xmftool/internal/atomicfile"
)

// Save writes the config to the user's config directory.
func (c *Config) Save() error {
	return c.SaveTo(filepath.Join(ConfigDir(), FileName))
}

// SaveTo writes the config to a specific path, creating parent directories.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(path, data, 0644)
}
