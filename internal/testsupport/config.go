package testsupport

import (
	"path/filepath"
	"testing"

	"vidshelf/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose state directory is a unique temp
// directory per test. Reconnect delays are shortened so tests do not sleep.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Reconnect.InitialDelayMS = 1
	cfgVal.Reconnect.MaxDelayMS = 10
	cfgVal.Reconnect.Jitter = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBackend points the config at host:port.
func WithBackend(host string, port int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.Host = host
		b.cfg.Backend.Port = port
	}
}

// WithJournalDisabled turns notification history off.
func WithJournalDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
