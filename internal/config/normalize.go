package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeBackend(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeBackend() error {
	if value, ok := os.LookupEnv("VIDSHELF_HOST"); ok && strings.TrimSpace(value) != "" {
		c.Backend.Host = value
	}
	if value, ok := os.LookupEnv("VIDSHELF_PORT"); ok && strings.TrimSpace(value) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("VIDSHELF_PORT: %w", err)
		}
		c.Backend.Port = port
	}
	c.Backend.Host = strings.TrimSpace(c.Backend.Host)
	c.Backend.Path = strings.TrimSpace(c.Backend.Path)
	if c.Backend.Path == "" {
		c.Backend.Path = defaultBackendPath
	}
	if !strings.HasPrefix(c.Backend.Path, "/") {
		c.Backend.Path = "/" + c.Backend.Path
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
