// Package config loads the YAML file describing a composite repository: a
// set of index-backed repositories, each attached at a mount point.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"vrepo/internal/logging"
	"vrepo/internal/repository"

	"github.com/goccy/go-yaml"
)

var (
	configLogger = logging.GetLogger().WithPrefix("config")

	// ErrNoMounts indicates a configuration without any mount
	ErrNoMounts = errors.New("configuration has no mounts")
)

// Mount describes one index-backed repository.
type Mount struct {
	// Index is the JSON or YAML index file.
	Index string `yaml:"index"`
	// Base is the directory relative references resolve against. It
	// defaults to the directory of the index file.
	Base string `yaml:"base,omitempty"`
}

// Config is the root of a configuration file.
type Config struct {
	LogLevel string           `yaml:"log_level,omitempty"`
	Mounts   map[string]Mount `yaml:"mounts"`
}

// Load reads and validates the configuration at path. Relative index and
// base paths are resolved against the directory of the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return Parse(data, dir)
}

// Parse decodes a configuration and resolves relative paths against dir.
func Parse(data []byte, dir string) (*Config, error) {
	var c Config
	if err := yaml.UnmarshalWithOptions(data, &c, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.resolve(dir); err != nil {
		return nil, err
	}
	configLogger.Debug("Parsed config with %d mounts", len(c.Mounts))
	return &c, nil
}

func (c *Config) resolve(dir string) error {
	if len(c.Mounts) == 0 {
		return ErrNoMounts
	}
	if c.LogLevel != "" {
		if _, err := logging.ParseLevel(c.LogLevel); err != nil {
			return err
		}
	}

	mounts := make(map[string]Mount, len(c.Mounts))
	for mp, m := range c.Mounts {
		canonical, err := repository.CanonicalPath(mp)
		if err != nil {
			return fmt.Errorf("mount %q: %w", mp, err)
		}
		if _, dup := mounts[canonical]; dup {
			return fmt.Errorf("mount %q: duplicate mount point %s", mp, canonical)
		}
		if m.Index == "" {
			return fmt.Errorf("mount %q: index is required", mp)
		}
		m.Index = absolute(m.Index, dir)
		if m.Base != "" {
			m.Base = absolute(m.Base, dir)
		}
		mounts[canonical] = m
	}
	c.Mounts = mounts
	return nil
}

func absolute(p, dir string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

// Level returns the configured log level, if any.
func (c *Config) Level() (logging.LogLevel, bool) {
	if c.LogLevel == "" {
		return logging.LevelInfo, false
	}
	level, err := logging.ParseLevel(c.LogLevel)
	return level, err == nil
}

// MountPoints returns the configured mount points in ascending order.
func (c *Config) MountPoints() []string {
	out := make([]string, 0, len(c.Mounts))
	for mp := range c.Mounts {
		out = append(out, mp)
	}
	sort.Strings(out)
	return out
}

// Build creates the composite repository. Index files are only opened when
// their mount point is first used.
func (c *Config) Build() (*repository.CompositeRepository, error) {
	composite := repository.NewCompositeRepository()
	for _, mp := range c.MountPoints() {
		if err := composite.Mount(mp, factoryFor(c.Mounts[mp])); err != nil {
			return nil, err
		}
	}
	return composite, nil
}

func factoryFor(m Mount) repository.Factory {
	return func(mountPoint string) (repository.Repository, error) {
		configLogger.Info("Opening index %s for %s", m.Index, mountPoint)
		repo, err := repository.OpenJSONRepository(m.Index, m.Base)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}
