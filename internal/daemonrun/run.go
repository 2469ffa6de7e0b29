package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"log/slog"

	"uplink/internal/capture"
	"uplink/internal/config"
	"uplink/internal/daemon"
	"uplink/internal/deps"
	"uplink/internal/devices"
	"uplink/internal/ipc"
	"uplink/internal/journal"
	"uplink/internal/logging"
	"uplink/internal/notifications"
	"uplink/internal/storage"
	"uplink/internal/upload"
	"uplink/internal/watcher"
)

// Options configures daemon process runtime behavior.
type Options struct {
	ConfigPath  string
	LogLevel    string
	Development bool
}

// Run boots the uplink daemon process: logging, journal, collaborators, the
// single-instance lock, and the IPC server. It blocks until the process
// receives SIGINT or SIGTERM. Watching does not start here; `uplink start`
// requests it over IPC.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("uplink-%s.log", runID))

	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update uplink.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "uplink-*.log", Exclude: []string{logPath}},
	)

	pidPath := cfg.PIDPath()
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := journal.Open(cfg)
	if err != nil {
		logger.Error("open journal store", logging.Error(err))
		return err
	}
	defer store.Close()

	// Rows stuck in detected/uploading belong to a previous process; nothing
	// will ever finish them.
	if abandoned, abandonErr := store.AbandonInFlight(signalCtx); abandonErr != nil {
		logger.Warn("abandon stale journal rows", logging.Error(abandonErr))
	} else if abandoned > 0 {
		logger.Info("abandoned stale journal rows",
			logging.String(logging.FieldEventType, "journal_rows_abandoned"),
			logging.Int64("row_count", abandoned))
	}

	notifier := notifications.NewService(cfg)

	var objects storage.ObjectStore
	objects, err = storage.NewS3Store(signalCtx, cfg)
	if err != nil {
		if !errors.Is(err, storage.ErrNotConfigured) {
			logger.Error("configure object storage", logging.Error(err))
			return fmt.Errorf("configure object storage: %w", err)
		}
		objects = storage.Disabled()
		logging.WarnWithContext(logger, "object storage not configured", "storage_unconfigured",
			logging.String(logging.FieldErrorHint, "set storage.bucket with `uplink config set` to enable sharing"),
			logging.String(logging.FieldImpact, "recordings will be journaled but uploads will fail"))
	}

	var publisher upload.Publisher
	if cfg.Storage.CopyLink {
		publisher = upload.NewClipboardPublisher()
	} else {
		publisher = upload.NewNoopPublisher()
	}

	coordinator := upload.NewCoordinator(cfg, logger, objects, store, notifier, publisher)
	catalog := devices.NewCatalog(logger)
	w := watcher.New(cfg, logger, watcher.Deps{
		Journal:   store,
		Uploads:   coordinator,
		Capture:   capture.NewSupervisor(cfg, logger),
		Selection: catalog,
		Notifier:  notifier,
	})

	d, err := daemon.New(cfg, logger, opts.ConfigPath, daemon.Deps{
		Store:    store,
		Watcher:  w,
		Catalog:  catalog,
		Uploads:  coordinator,
		Notifier: notifier,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.AcquireLock(); err != nil {
		logger.Error("acquire daemon lock", logging.Error(err))
		return err
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	logger.Info("uplink daemon ready",
		logging.String(logging.FieldEventType, "daemon_ready"),
		logging.String("socket", cfg.SocketPath()),
		logging.String("log_file", logPath))

	<-signalCtx.Done()
	logger.Info("uplink daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "uplink.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("storage_configured", cfg.StorageConfigured()),
		logging.Bool("capture_enabled", cfg.Capture.Enabled),
		logging.Bool("desktop_notifications", cfg.Notifications.Desktop),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	}
	for _, status := range deps.CheckBinaries(deps.Requirements(cfg.Capture.Enabled)) {
		attrs = append(attrs, logging.Bool(status.Command+"_available", status.Available))
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}
