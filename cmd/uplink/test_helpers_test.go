package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"log/slog"

	"uplink/internal/capture"
	"uplink/internal/config"
	"uplink/internal/daemon"
	"uplink/internal/devices"
	"uplink/internal/ipc"
	"uplink/internal/journal"
	"uplink/internal/logging"
	"uplink/internal/notify"
	"uplink/internal/testsupport"
	"uplink/internal/upload"
	"uplink/internal/watcher"
)

type nullObjectStore struct{}

func (nullObjectStore) Put(_ context.Context, _, _, _ string, body io.Reader, _ int64) error {
	_, err := io.Copy(io.Discard, body)
	return err
}

func (nullObjectStore) Delete(context.Context, string) error { return nil }

func (nullObjectStore) SetPublicRead(context.Context, string) error { return nil }

func (nullObjectStore) PublicURL(name string) string {
	return "https://files.example.net/" + name
}

type noopCapture struct{}

func (noopCapture) StartSession(string, devices.Selection, func(capture.Kind, int)) error {
	return nil
}

func (noopCapture) StopSession() {}

type fixedSelection struct{}

func (fixedSelection) Resolve(*config.Config) (devices.Selection, error) {
	return devices.Selection{}, nil
}

type quietChanges struct {
	ch   chan []string
	once sync.Once
}

func (c *quietChanges) Start(context.Context) error { return nil }

func (c *quietChanges) Events() <-chan []string { return c.ch }

func (c *quietChanges) Close() error {
	c.once.Do(func() { close(c.ch) })
	return nil
}

// syncBuffer is a thread-safe bytes.Buffer for commands that write from a
// goroutine while the test polls the output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ io.Writer = (*syncBuffer)(nil)

type cliTestEnv struct {
	cfg        *config.Config
	store      *journal.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	configPath string
	logPath    string
	cancel     context.CancelFunc
}

// setupCLITestEnv runs a daemon with an IPC server inside the test process,
// listening on the socket the saved config resolves to, so commands behave
// exactly as they would against a detached daemon.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	homeDir := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("UPLINK_CONFIG", "")

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	coordinator := upload.NewCoordinator(cfg, logger, nullObjectStore{}, store, nil, upload.NewNoopPublisher())
	w := watcher.New(cfg, logger, watcher.Deps{
		Journal:   store,
		Uploads:   coordinator,
		Capture:   noopCapture{},
		Selection: fixedSelection{},
		Changes: func(string, *slog.Logger) notify.Notifier {
			return &quietChanges{ch: make(chan []string, 1)}
		},
	})

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.json")
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("save config: %v", err)
	}

	d, err := daemon.New(cfg, logger, configPath, daemon.Deps{
		Store:   store,
		Watcher: w,
		Catalog: devices.NewCatalog(logger),
		Uploads: coordinator,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		cancel()
		d.Close()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		server:     srv,
		configPath: configPath,
		logPath:    d.LogPath(),
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
