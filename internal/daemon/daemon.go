package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"uplink/internal/config"
	"uplink/internal/deps"
	"uplink/internal/devices"
	"uplink/internal/journal"
	"uplink/internal/logging"
	"uplink/internal/notifications"
	"uplink/internal/upload"
	"uplink/internal/watcher"
)

// manualUploadExtensions are the container formats accepted by manual
// uploads in addition to the watched extension.
var manualUploadExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".webm": {},
	".mov":  {},
}

// Deps are the collaborators the daemon drives for its lifetime.
type Deps struct {
	Store    *journal.Store
	Watcher  *watcher.Watcher
	Catalog  *devices.Catalog
	Uploads  *upload.Coordinator
	Notifier notifications.Service
}

// Daemon is the long-lived coordinator behind the IPC surface.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	configPath string
	logPath    string

	store    *journal.Store
	watcher  *watcher.Watcher
	catalog  *devices.Catalog
	uploads  *upload.Coordinator
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	locked  bool
	hotplug *devices.HotplugMonitor
	cancel  context.CancelFunc
}

// Status is the daemon's runtime projection for the status surface.
type Status struct {
	Watching     bool
	Phase        string
	ActiveBase   string
	CycleID      string
	Uploading    bool
	KnownFiles   int
	Journal      journal.HealthSummary
	JournalPath  string
	LockPath     string
	SocketPath   string
	PID          int
	Dependencies []deps.Status
}

// New builds a daemon from its collaborators. configPath is where device
// selections are persisted; an empty path disables persistence.
func New(cfg *config.Config, logger *slog.Logger, configPath string, d Deps) (*Daemon, error) {
	if cfg == nil || d.Store == nil || d.Watcher == nil || d.Catalog == nil || d.Uploads == nil {
		return nil, errors.New("daemon requires config, journal store, watcher, catalog, and upload coordinator")
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		configPath: configPath,
		logPath:    filepath.Join(cfg.Paths.LogDir, "uplink.log"),
		store:      d.Store,
		watcher:    d.Watcher,
		catalog:    d.Catalog,
		uploads:    d.Uploads,
		notifier:   notifier,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// AcquireLock claims the single-instance lock. It is idempotent within one
// daemon and fails when another process holds the lock.
func (d *Daemon) AcquireLock() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquireLockLocked()
}

func (d *Daemon) acquireLockLocked() error {
	if d.locked {
		return nil
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !ok {
		return errors.New("another uplink daemon is already running")
	}
	d.locked = true
	return nil
}

// Start begins a watching run: refresh the device inventory, keep it fresh
// through hotplug events, and hand the recording lifecycle to the watcher.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.watcher.Running() {
		return errors.New("already watching")
	}
	if err := d.acquireLockLocked(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)

	d.catalog.Refresh(runCtx)
	hp := devices.NewHotplugMonitor(d.logger, func(string) {
		d.catalog.Refresh(runCtx)
	})
	if err := hp.Start(runCtx); err != nil {
		logging.WarnWithContext(d.logger, "hotplug monitor unavailable", "hotplug_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `uplink devices list` to refresh the inventory manually"),
			logging.String(logging.FieldImpact, "devices plugged in later are not picked up automatically"),
		)
		hp = nil
	}

	if err := d.watcher.Start(runCtx); err != nil {
		if hp != nil {
			hp.Stop()
		}
		cancel()
		return fmt.Errorf("start watcher: %w", err)
	}

	d.hotplug = hp
	d.cancel = cancel
	d.logger.Info("daemon watching",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop ends the watching run. The process, lock, and IPC surface stay up so
// watching can be started again.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel == nil {
		return
	}

	d.watcher.Stop()
	if d.hotplug != nil {
		d.hotplug.Stop()
		d.hotplug = nil
	}
	d.cancel()
	d.cancel = nil

	d.logger.Info("daemon stopped watching",
		logging.String(logging.FieldEventType, "daemon_stopped"),
	)
}

// Watching reports whether a watching run is active.
func (d *Daemon) Watching() bool {
	return d.watcher.Running()
}

// Close stops watching and releases the single-instance lock. The journal
// store is closed by whoever opened it.
func (d *Daemon) Close() error {
	d.Stop()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locked {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
		d.locked = false
	}
	return nil
}

// LogPath returns the stable pointer to the current run's log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status assembles the runtime projection. Journal health is best-effort; a
// failing journal leaves those counts zero rather than failing the call.
func (d *Daemon) Status(ctx context.Context) Status {
	snap := d.watcher.Status()
	health, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("journal health unavailable", logging.Error(err))
	}
	return Status{
		Watching:     snap.Running,
		Phase:        string(snap.Phase),
		ActiveBase:   snap.ActiveBase,
		CycleID:      snap.CycleID,
		Uploading:    snap.Uploading,
		KnownFiles:   snap.KnownFiles,
		Journal:      health,
		JournalPath:  d.store.Path(),
		LockPath:     d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
		PID:          os.Getpid(),
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg.Capture.Enabled)),
	}
}

// Devices returns the device inventory, probing the system first when
// refresh is set.
func (d *Daemon) Devices(ctx context.Context, refresh bool) devices.Inventory {
	if refresh {
		return d.catalog.Refresh(ctx)
	}
	return d.catalog.Snapshot()
}

// SelectedDevices reports the configured capture device choices.
func (d *Daemon) SelectedDevices() (screen, camera, audio string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.Devices.Screen, d.cfg.Devices.Camera, d.cfg.Devices.Audio
}

// SelectDevice validates a selection against the live inventory and persists
// it to the config file, so the next capture session uses it.
func (d *Daemon) SelectDevice(ctx context.Context, kind, value string) error {
	d.catalog.Refresh(ctx)
	if err := d.catalog.Validate(kind, value); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	value = strings.TrimSpace(value)
	switch kind {
	case devices.KindScreen:
		d.cfg.Devices.Screen = value
	case devices.KindCamera:
		d.cfg.Devices.Camera = value
	case devices.KindAudio:
		d.cfg.Devices.Audio = value
	}
	if d.configPath == "" {
		return errors.New("config path unknown; selection not persisted")
	}
	if err := d.cfg.Save(d.configPath); err != nil {
		return fmt.Errorf("persist device selection: %w", err)
	}
	d.logger.Info("device selection updated",
		logging.String("kind", kind),
		logging.String("value", value),
		logging.String(logging.FieldEventType, "device_selected"),
	)
	return nil
}

// History returns the most recent journal rows, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]*journal.Recording, error) {
	if limit <= 0 {
		limit = 20
	}
	return d.store.Recent(ctx, limit)
}

// ClearHistory removes every journal row and reports how many were removed.
func (d *Daemon) ClearHistory(ctx context.Context) (int64, error) {
	removed, err := d.store.Clear(ctx)
	if err != nil {
		return 0, err
	}
	d.logger.Info("journal cleared",
		logging.Int64("removed_count", removed),
		logging.String(logging.FieldEventType, "journal_cleared"),
	)
	return removed, nil
}

// Upload shares an existing file through the real-upload path, outside any
// watch cycle. It blocks until the upload settles.
func (d *Daemon) Upload(ctx context.Context, sourcePath string) (upload.Result, error) {
	trimmed := strings.TrimSpace(sourcePath)
	if trimmed == "" {
		return upload.Result{}, errors.New("source path is required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return upload.Result{}, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return upload.Result{}, fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return upload.Result{}, fmt.Errorf("source path %q is a directory", abs)
	}
	ext := strings.ToLower(filepath.Ext(abs))
	if _, ok := manualUploadExtensions[ext]; !ok && !strings.EqualFold(ext, d.cfg.Watch.Extension) {
		return upload.Result{}, fmt.Errorf("unsupported file extension %q", ext)
	}

	base := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	rec, err := d.store.NewRecording(ctx, uuid.New().String(), base, abs, info.Size())
	if err != nil {
		return upload.Result{}, fmt.Errorf("journal manual upload: %w", err)
	}
	d.logger.Info("manual upload requested",
		logging.String(logging.FieldRecording, base),
		logging.String("source", abs),
		logging.String(logging.FieldEventType, "manual_upload"),
	)

	res := d.uploads.UploadReal(ctx, abs, base, rec.ID)
	if res.Err != nil {
		return res, res.Err
	}
	return res, nil
}

// TestNotification pushes a test message through the configured backends.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if !d.cfg.Notifications.Desktop && strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "no notification backends configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
