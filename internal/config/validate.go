package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateReconnect(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Journal.RetentionDays < 0 {
		return errors.New("journal.retention_days must be zero or positive")
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.Host == "" {
		return errors.New("backend.host must be set")
	}
	if c.Backend.Port <= 0 || c.Backend.Port > 65535 {
		return fmt.Errorf("backend.port must be between 1 and 65535, got %d", c.Backend.Port)
	}
	if c.Backend.ConnectTimeoutSeconds <= 0 {
		return errors.New("backend.connect_timeout_seconds must be positive")
	}
	if c.Backend.CallTimeoutSeconds <= 0 {
		return errors.New("backend.call_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateReconnect() error {
	if c.Reconnect.InitialDelayMS <= 0 {
		return errors.New("reconnect.initial_delay_ms must be positive")
	}
	if c.Reconnect.Multiplier < 1 {
		return errors.New("reconnect.multiplier must be at least 1")
	}
	if c.Reconnect.MaxDelayMS < c.Reconnect.InitialDelayMS {
		return errors.New("reconnect.max_delay_ms must not be below reconnect.initial_delay_ms")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return errors.New("reconnect.max_attempts must be zero or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
