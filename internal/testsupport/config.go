package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"uplink/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Watch.Directory = filepath.Join(base, "recordings")
	cfgVal.Capture.OutputDir = filepath.Join(base, "sources")
	cfgVal.Capture.PresetPath = filepath.Join(base, "capture.toml")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.JournalDB = filepath.Join(base, "journal.db")
	cfgVal.Notifications.Desktop = false

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

// WithExtension overrides the tracked recording extension on the test config.
func WithExtension(ext string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.Extension = ext
	}
}

// WithCaptureEnabled toggles auxiliary capture on the test config.
func WithCaptureEnabled(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Capture.Enabled = enabled
	}
}

// WithStorage fills in enough storage settings for uploads to be considered
// configured.
func WithStorage(bucket string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Storage.Bucket = bucket
		b.cfg.Storage.Region = "us-east-1"
		b.cfg.Storage.AccessKey = "test-access"
		b.cfg.Storage.SecretKey = "test-secret"
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default uplink external
// binaries are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "xrandr", "pactl"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Watch.Directory)
}
