package ipc_test

import (
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

func TestIPCServerClient(t *testing.T) {
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
	d, err := daemon.New(cfg, logger, configPath, daemon.Deps{
		Store:   store,
		Watcher: w,
		Catalog: devices.NewCatalog(logger),
		Uploads: coordinator,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	ping, err := client.Ping()
	if err != nil {
		t.Fatalf("Ping RPC failed: %v", err)
	}
	if ping.PID != os.Getpid() {
		t.Fatalf("expected ping PID %d, got %d", os.Getpid(), ping.PID)
	}

	before, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if before.Watching {
		t.Fatal("expected daemon to boot without watching")
	}
	if before.PID != os.Getpid() {
		t.Fatalf("expected PID %d, got %d", os.Getpid(), before.PID)
	}
	if before.JournalPath == "" || before.SocketPath == "" {
		t.Fatalf("expected populated paths, got %#v", before)
	}

	startResp, err := client.Start()
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if !startResp.Started {
		t.Fatalf("expected Started=true, message=%s", startResp.Message)
	}

	again, err := client.Start()
	if err != nil {
		t.Fatalf("second Start RPC failed: %v", err)
	}
	if !again.Started || again.Message != "already watching" {
		t.Fatalf("unexpected second start response: %#v", again)
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Watching {
		t.Fatal("expected daemon to be watching")
	}
	if status.Phase != "idle" {
		t.Fatalf("expected idle phase, got %q", status.Phase)
	}

	if _, err := client.Devices(false); err != nil {
		t.Fatalf("Devices RPC failed: %v", err)
	}
	selResp, err := client.SelectDevice("camera", "none")
	if err != nil {
		t.Fatalf("SelectDevice failed: %v", err)
	}
	if selResp.Kind != "camera" || selResp.Value != "none" {
		t.Fatalf("unexpected selection echo: %#v", selResp)
	}
	if _, err := client.SelectDevice("screen", "HDMI-404"); err == nil {
		t.Fatal("expected unknown screen selection to fail")
	}

	first := testsupport.NewRecording(t, store, "cycle-1", "standup", "/tmp/standup.mp4")
	second := testsupport.NewRecording(t, store, "cycle-2", "retro", "/tmp/retro.mp4")
	if err := store.MarkUploading(ctx, second.ID); err != nil {
		t.Fatalf("MarkUploading: %v", err)
	}
	if err := store.MarkShared(ctx, second.ID, "https://files.example.net/retro.mp4", 2048); err != nil {
		t.Fatalf("MarkShared: %v", err)
	}

	history, err := client.History(10)
	if err != nil {
		t.Fatalf("History RPC failed: %v", err)
	}
	if len(history.Entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history.Entries))
	}
	if history.Entries[0].BaseName != "retro" || history.Entries[0].Status != string(journal.StatusShared) {
		t.Fatalf("unexpected newest entry: %#v", history.Entries[0])
	}
	if history.Entries[1].ID != first.ID {
		t.Fatalf("expected oldest entry %d, got %d", first.ID, history.Entries[1].ID)
	}

	cleared, err := client.HistoryClear()
	if err != nil {
		t.Fatalf("HistoryClear failed: %v", err)
	}
	if cleared.Removed != 2 {
		t.Fatalf("expected 2 removed entries, got %d", cleared.Removed)
	}

	manualPath := filepath.Join(testsupport.BaseDir(cfg), "pending", "talk.mp4")
	testsupport.WriteFile(t, manualPath, 4096)
	uploadResp, err := client.Upload(manualPath)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if uploadResp.BaseName != "talk" || uploadResp.Dest != "talk.mp4" {
		t.Fatalf("unexpected upload response: %#v", uploadResp)
	}
	if uploadResp.URL == "" {
		t.Fatal("expected upload response to include share URL")
	}
	if _, err := client.Upload(filepath.Join(testsupport.BaseDir(cfg), "absent.mp4")); err == nil {
		t.Fatal("expected upload of missing file to fail")
	}

	logPath := d.LogPath()
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	logResp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("LogTail initial failed: %v", err)
	}
	if len(logResp.Lines) != 2 || logResp.Lines[0] != "second" || logResp.Lines[1] != "third" {
		t.Fatalf("unexpected log tail response: %#v", logResp.Lines)
	}

	followDone := make(chan struct{})
	go func(offset int64) {
		resp, err := client.LogTail(ipc.LogTailRequest{Offset: offset, Follow: true, WaitMillis: 500})
		if err != nil {
			t.Errorf("LogTail follow error: %v", err)
			return
		}
		if len(resp.Lines) != 1 || resp.Lines[0] != "fourth" {
			t.Errorf("unexpected follow lines: %#v", resp.Lines)
		}
		close(followDone)
	}(logResp.Offset)

	time.Sleep(100 * time.Millisecond)
	if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
		_, _ = f.WriteString("fourth\n")
		_ = f.Close()
	} else {
		t.Fatalf("append log: %v", err)
	}

	select {
	case <-followDone:
	case <-time.After(10 * time.Second):
		t.Fatal("log tail follow timed out")
	}

	notifyResp, err := client.TestNotification()
	if err != nil {
		t.Fatalf("TestNotification failed: %v", err)
	}
	if notifyResp.Sent {
		t.Fatal("expected no notification backends in tests")
	}
	if !strings.Contains(notifyResp.Message, "no notification backends") {
		t.Fatalf("unexpected notification message: %q", notifyResp.Message)
	}

	stopResp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !stopResp.Stopped {
		t.Fatalf("expected Stop to report stopped, got: %#v", stopResp)
	}
	final, err := client.Status()
	if err != nil {
		t.Fatalf("final Status failed: %v", err)
	}
	if final.Watching {
		t.Fatal("expected watching to end after Stop")
	}
}

func TestDialFailsWithoutDaemon(t *testing.T) {
	if _, err := ipc.Dial(filepath.Join(t.TempDir(), "absent.sock")); err == nil {
		t.Fatal("expected dial to fail when no daemon is listening")
	}
}
