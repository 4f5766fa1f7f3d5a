package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"autocrack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Retry delays are zeroed so guarded copies never sleep.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Replace.RetryDelayMS = 0
	cfgVal.Steam.WebAPIKey = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithSteamAPIKey sets the Web API key on the test config.
func WithSteamAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Steam.WebAPIKey = key
	}
}

// WithUnpackDisabled turns the unpack phase off.
func WithUnpackDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Unpack.Enabled = false
	}
}

// WithStubbedUnpacker writes a shell script standing in for the Steamless CLI
// and points unpack.tool at it. The script receives the executable as its
// last argument.
func WithStubbedUnpacker(script string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "steamless")
		if err := os.WriteFile(target, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
			b.t.Fatalf("write unpacker stub: %v", err)
		}
		b.cfg.Unpack.Tool = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.CacheDir)
}
