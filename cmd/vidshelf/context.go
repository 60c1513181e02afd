package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"vidshelf/internal/config"
	"vidshelf/internal/logging"
	"vidshelf/internal/rpc"
)

type globalFlags struct {
	config    string
	host      string
	port      int
	secure    bool
	secureSet bool
}

type commandContext struct {
	flags *globalFlags

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyFlagOverrides(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

// configSource describes where the effective configuration came from.
func (c *commandContext) configSource() string {
	if c.configExists {
		return c.configPath
	}
	return "defaults (no file at " + c.configPath + ")"
}

func (c *commandContext) applyFlagOverrides(cfg *config.Config) error {
	if host := strings.TrimSpace(c.flags.host); host != "" {
		cfg.Backend.Host = host
	}
	if c.flags.port != 0 {
		cfg.Backend.Port = c.flags.port
	}
	if c.flags.secureSet {
		cfg.Backend.Secure = c.flags.secure
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("command-line overrides: %w", err)
	}
	return nil
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) endpoint(cfg *config.Config) rpc.Endpoint {
	return rpc.Endpoint{
		Host:   cfg.Backend.Host,
		Port:   cfg.Backend.Port,
		Secure: cfg.Backend.Secure,
		Path:   cfg.Backend.Path,
	}
}

func (c *commandContext) sessionOptions() (rpc.SessionOptions, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return rpc.SessionOptions{}, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return rpc.SessionOptions{}, err
	}
	return rpc.SessionOptions{
		Endpoint: c.endpoint(cfg),
		Dialer:   rpc.WebSocketDialer{HandshakeTimeout: cfg.ConnectTimeout(), WriteTimeout: cfg.CallTimeout()},
		Logger:   logger,
	}, nil
}

func (c *commandContext) backoff() rpc.BackoffConfig {
	cfg, err := c.ensureConfig()
	if err != nil {
		return rpc.DefaultBackoff()
	}
	return rpc.BackoffConfig{
		InitialDelay: time.Duration(cfg.Reconnect.InitialDelayMS) * time.Millisecond,
		Multiplier:   cfg.Reconnect.Multiplier,
		MaxDelay:     time.Duration(cfg.Reconnect.MaxDelayMS) * time.Millisecond,
		Jitter:       cfg.Reconnect.Jitter,
	}
}

func (c *commandContext) withClient(ctx context.Context, fn func(*rpc.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	opts, err := c.sessionOptions()
	if err != nil {
		return err
	}
	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout())
	defer cancel()
	client, err := rpc.Dial(dialCtx, opts)
	if err != nil {
		return fmt.Errorf("connect to backend at %s: %w (is the library backend running?)", opts.Endpoint, err)
	}
	defer client.Close()
	return fn(client)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
