package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"uplink/internal/capture"
	"uplink/internal/config"
	"uplink/internal/devices"
	"uplink/internal/fileutil"
	"uplink/internal/journal"
	"uplink/internal/logging"
	"uplink/internal/notifications"
	"uplink/internal/notify"
	"uplink/internal/upload"
)

const eventBuffer = 64

// Phase is the lifecycle state machine's current position.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseDetected   Phase = "detected"
	PhasePolling    Phase = "polling"
	PhaseFinalizing Phase = "finalizing"
)

const (
	stagePlaceholder = "placeholder"
	stageReal        = "real"
)

// UploadCoordinator is the two-phase upload surface the watcher drives.
type UploadCoordinator interface {
	DispatchPlaceholder(ctx context.Context, baseName string, journalID int64, done func(upload.Result))
	DispatchReal(ctx context.Context, path, baseName string, journalID int64, done func(upload.Result))
	Uploading() bool
}

// CaptureSupervisor brackets a recording with auxiliary source captures.
type CaptureSupervisor interface {
	StartSession(baseName string, sel devices.Selection, onExit func(kind capture.Kind, exitCode int)) error
	StopSession()
}

// SelectionSource resolves the configured device identifiers into the
// concrete devices a capture session records from.
type SelectionSource interface {
	Resolve(cfg *config.Config) (devices.Selection, error)
}

// ChangeNotifierFactory builds a fresh change notifier for one watching run.
// A new notifier is created on every Start so a stopped watcher can be
// started again.
type ChangeNotifierFactory func(dir string, logger *slog.Logger) notify.Notifier

// SizeProbe reports the current byte size of path.
type SizeProbe func(path string) (int64, error)

// Deps are the watcher's collaborators. Journal, Uploads, Capture, and
// Selection are required; the rest fall back to production defaults when
// nil.
type Deps struct {
	Journal   *journal.Store
	Uploads   UploadCoordinator
	Capture   CaptureSupervisor
	Selection SelectionSource
	Notifier  notifications.Service
	Changes   ChangeNotifierFactory
	Probe     SizeProbe
}

// Snapshot is a point-in-time view of the watcher for the status surface.
type Snapshot struct {
	Running    bool
	Phase      Phase
	ActiveBase string
	ActivePath string
	CycleID    string
	Uploading  bool
	KnownFiles int
}

// activeRecording tracks the single recording between detection and
// finalization. All fields are owned by the event loop.
type activeRecording struct {
	cycleID     string
	path        string
	baseName    string
	fileName    string
	journalID   int64
	lastSize    int64
	stableCount int
}

// Watcher is the recording-lifecycle state machine. External stimuli arrive
// as events on one channel and are consumed by a single goroutine; see the
// package comment for the ownership rules.
type Watcher struct {
	cfg        *config.Config
	logger     *slog.Logger
	journal    *journal.Store
	uploads    UploadCoordinator
	capture    CaptureSupervisor
	selection  SelectionSource
	notifier   notifications.Service
	newChanges ChangeNotifierFactory
	probe      SizeProbe

	pollInterval time.Duration
	threshold    int

	mu       sync.Mutex
	running  bool
	runCtx   context.Context
	cancel   context.CancelFunc
	changes  notify.Notifier
	events   chan event
	loopDone chan struct{}
	wg       sync.WaitGroup

	statusMu sync.Mutex
	status   Snapshot

	// Loop-owned state. Only the run goroutine touches these while the
	// watcher is running.
	known  map[string]struct{}
	active *activeRecording
	poll   *poller
	phase  Phase
}

// New builds a watcher from its collaborators. It does not start watching.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Watcher {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	changes := deps.Changes
	if changes == nil {
		changes = notify.New
	}
	probe := deps.Probe
	if probe == nil {
		probe = fileutil.FileSize
	}

	interval := time.Duration(cfg.Watch.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	threshold := cfg.Watch.StabilityThreshold
	if threshold <= 0 {
		threshold = 2
	}

	return &Watcher{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "watcher"),
		journal:      deps.Journal,
		uploads:      deps.Uploads,
		capture:      deps.Capture,
		selection:    deps.Selection,
		notifier:     notifier,
		newChanges:   changes,
		probe:        probe,
		pollInterval: interval,
		threshold:    threshold,
		phase:        PhaseIdle,
		status:       Snapshot{Phase: PhaseIdle},
	}
}

// Start begins watching the configured directory. Files already present are
// recorded as known and never detected. Starting an already running watcher
// is a no-op.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.logger.Info("watcher already running")
		return nil
	}

	dir := w.cfg.Watch.Directory
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}

	changes := w.newChanges(dir, w.logger)
	runCtx, cancel := context.WithCancel(ctx)
	if err := changes.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("start change notifier: %w", err)
	}

	w.runCtx = runCtx
	w.cancel = cancel
	w.changes = changes
	w.events = make(chan event, eventBuffer)
	w.loopDone = make(chan struct{})
	w.known = Scan(dir, w.cfg.Watch.Extension)
	w.active = nil
	w.poll = nil
	w.phase = PhaseIdle
	w.running = true
	w.publishStatus(true)

	w.wg.Add(2)
	go w.run(runCtx)
	go w.forwardChanges(changes)
	if rescan := w.cfg.Watch.RescanIntervalSeconds; rescan > 0 {
		w.wg.Add(1)
		go w.rescanLoop(runCtx, time.Duration(rescan)*time.Second)
	}

	w.logger.Info("watching for recordings",
		logging.String("directory", dir),
		logging.String("extension", w.cfg.Watch.Extension),
		logging.Int("known_files", len(w.known)),
		logging.String(logging.FieldEventType, "watcher_started"),
	)
	go w.sendStartNotice(runCtx)
	return nil
}

// Stop ends the watching run: the poller is cancelled, an in-progress
// recording is abandoned in the journal, and any capture session is stopped
// so no subprocess outlives the watcher. In-flight uploads are not
// cancelled; they complete on their own. Safe to call when not running.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	cancel := w.cancel
	changes := w.changes
	w.changes = nil
	w.mu.Unlock()

	cancel()
	if err := changes.Close(); err != nil {
		w.logger.Warn("change notifier close failed", logging.Error(err))
	}
	w.wg.Wait()

	w.logger.Info("watcher stopped", logging.String(logging.FieldEventType, "watcher_stopped"))
	if err := w.notifier.NotifyWatcherStopped(context.Background()); err != nil {
		w.logger.Warn("notification failed", logging.Error(err))
	}
}

// Running reports whether a watching run is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Status returns the published snapshot. It never blocks on the event loop.
func (w *Watcher) Status() Snapshot {
	w.statusMu.Lock()
	defer w.statusMu.Unlock()
	snap := w.status
	if w.uploads != nil {
		snap.Uploading = w.uploads.Uploading()
	}
	return snap
}

// post hands an event to the run loop, dropping it if the loop has already
// exited.
func (w *Watcher) post(ev event) {
	select {
	case w.events <- ev:
	case <-w.loopDone:
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	defer close(w.loopDone)
	for {
		select {
		case <-ctx.Done():
			w.shutdown()
			return
		case ev := <-w.events:
			switch ev := ev.(type) {
			case fileChangedEvent:
				w.handleFileChanged(ev)
			case pollSampleEvent:
				w.handlePollSample(ev)
			case captureExitedEvent:
				w.handleCaptureExited(ev)
			case uploadFinishedEvent:
				w.handleUploadFinished(ev)
			}
		}
	}
}

func (w *Watcher) forwardChanges(changes notify.Notifier) {
	defer w.wg.Done()
	for batch := range changes.Events() {
		w.post(fileChangedEvent{paths: batch})
	}
}

// rescanLoop periodically forces a full directory rescan, catching files a
// lossy notifier missed (inotify queue overflow, network filesystems).
func (w *Watcher) rescanLoop(ctx context.Context, interval time.Duration) {
	defer w.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.post(fileChangedEvent{})
		}
	}
}

func (w *Watcher) sendStartNotice(ctx context.Context) {
	if err := w.notifier.NotifyWatcherStarted(ctx); err != nil {
		w.logger.Warn("notification failed", logging.Error(err))
	}
}

func (w *Watcher) handleFileChanged(ev fileChangedEvent) {
	paths := ev.paths
	if len(paths) == 0 {
		paths = w.listTracked()
	}
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(w.cfg.Watch.Directory, p)
		}
		w.maybeDetect(p)
	}
}

// maybeDetect applies the detection conditions to one changed path: tracked
// extension, not yet known, no recording active, and the file still exists.
// Only a path that passes all four claims the slot.
func (w *Watcher) maybeDetect(path string) {
	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(name), w.cfg.Watch.Extension) {
		return
	}
	if _, seen := w.known[name]; seen {
		return
	}
	if w.active != nil {
		// One recording at a time. The name stays unclaimed so a later
		// notification can pick it up once the slot frees.
		w.logger.Debug("ignoring new file while a recording is active",
			logging.String("path", path),
			logging.String(logging.FieldRecording, w.active.baseName),
		)
		return
	}
	if !fileutil.Exists(path) {
		return
	}
	w.beginCycle(path, name)
}

func (w *Watcher) beginCycle(path, name string) {
	rec := &activeRecording{
		cycleID:  uuid.New().String(),
		path:     path,
		baseName: strings.TrimSuffix(name, filepath.Ext(name)),
		fileName: name,
		lastSize: -1,
	}
	w.known[name] = struct{}{}
	w.active = rec
	w.phase = PhaseDetected
	w.publishStatus(true)

	if row, err := w.journal.NewRecording(w.runCtx, rec.cycleID, rec.baseName, path, 0); err != nil {
		w.logger.Warn("journal insert failed",
			logging.Error(err),
			logging.String(logging.FieldRecording, rec.baseName),
		)
	} else {
		rec.journalID = row.ID
	}

	w.logger.Info("recording detected",
		logging.String(logging.FieldRecording, rec.baseName),
		logging.String("path", path),
		logging.String(logging.FieldCycleID, rec.cycleID),
		logging.String(logging.FieldEventType, "recording_detected"),
	)
	go w.sendDetectNotice(w.runCtx, rec.baseName)

	// Placeholder first, then capture, then polling. The upload must not
	// block the loop, and capture has to be rolling before the first poll
	// so none of the recording's window is lost.
	w.uploads.DispatchPlaceholder(context.WithoutCancel(w.runCtx), rec.baseName, rec.journalID, func(res upload.Result) {
		w.post(uploadFinishedEvent{stage: stagePlaceholder, result: res})
	})
	w.startCapture(rec)

	w.stopPoller()
	w.poll = w.startPoller(rec.cycleID, path)
	w.phase = PhasePolling
	w.publishStatus(true)
}

func (w *Watcher) sendDetectNotice(ctx context.Context, baseName string) {
	if err := w.notifier.NotifyRecordingDetected(ctx, baseName); err != nil {
		w.logger.Warn("notification failed", logging.Error(err))
	}
}

// startCapture begins the auxiliary capture session. Capture is best-effort:
// any failure is logged and the lifecycle continues without it.
func (w *Watcher) startCapture(rec *activeRecording) {
	if !w.cfg.Capture.Enabled {
		return
	}
	sel, err := w.selection.Resolve(w.cfg)
	if err != nil {
		logging.WarnWithContext(w.logger, "cannot resolve capture devices", "capture_devices_unresolved",
			logging.Error(err),
			logging.String(logging.FieldRecording, rec.baseName),
			logging.String(logging.FieldErrorHint, "check `uplink devices list` and the configured selections"),
			logging.String(logging.FieldImpact, "no raw sources will be captured for this recording"),
		)
		return
	}
	if err := w.capture.StartSession(rec.baseName, sel, func(kind capture.Kind, exitCode int) {
		w.post(captureExitedEvent{kind: kind, exitCode: exitCode})
	}); err != nil && !errors.Is(err, capture.ErrSessionActive) {
		w.logger.Warn("capture session failed to start",
			logging.Error(err),
			logging.String(logging.FieldRecording, rec.baseName),
		)
	}
}

func (w *Watcher) handlePollSample(ev pollSampleEvent) {
	rec := w.active
	if rec == nil || rec.cycleID != ev.cycleID {
		return
	}
	if !ev.ok {
		w.abortCycle(w.runCtx, rec, "Recording file disappeared before it stabilized")
		return
	}
	if ev.size == rec.lastSize {
		rec.stableCount++
	} else {
		rec.lastSize = ev.size
		rec.stableCount = 1
	}
	if rec.stableCount >= w.threshold {
		w.finalizeCycle(rec)
	}
}

// abortCycle ends a cycle without a real upload: the file became
// inaccessible or the watcher is stopping. The claim on the filename is
// kept, so the same name cannot trigger a second cycle this run.
func (w *Watcher) abortCycle(ctx context.Context, rec *activeRecording, reason string) {
	w.stopPoller()
	w.capture.StopSession()
	w.active = nil
	w.phase = PhaseIdle

	if rec.journalID != 0 {
		if err := w.journal.MarkAborted(ctx, rec.journalID, reason); err != nil {
			w.logger.Warn("journal update failed", logging.Error(err))
		}
	}
	logging.WarnWithContext(w.logger, "recording cycle aborted", "recording_aborted",
		logging.String(logging.FieldRecording, rec.baseName),
		logging.String("path", rec.path),
		logging.String("reason", reason),
		logging.String(logging.FieldImpact, "no upload will happen for this recording"),
		logging.String(logging.FieldErrorHint, "use `uplink upload` to share the file manually if it still exists"),
	)
	w.publishStatus(true)
}

// finalizeCycle runs once the file has stopped growing: stop the poller,
// stop capture, hand the file to the real upload, and free the slot. The
// upload completes asynchronously and a new recording may be detected while
// it is still in flight.
func (w *Watcher) finalizeCycle(rec *activeRecording) {
	w.phase = PhaseFinalizing
	w.publishStatus(true)

	w.stopPoller()
	w.capture.StopSession()
	w.uploads.DispatchReal(context.WithoutCancel(w.runCtx), rec.path, rec.baseName, rec.journalID, func(res upload.Result) {
		w.post(uploadFinishedEvent{stage: stageReal, result: res})
	})

	w.active = nil
	w.phase = PhaseIdle
	w.publishStatus(true)

	w.logger.Info("recording stable, uploading",
		logging.String(logging.FieldRecording, rec.baseName),
		logging.Int64("size_bytes", rec.lastSize),
		logging.String(logging.FieldCycleID, rec.cycleID),
		logging.String(logging.FieldEventType, "recording_stable"),
	)
}

// handleCaptureExited only logs: a capture subprocess finishing never
// terminates its siblings or the recording lifecycle.
func (w *Watcher) handleCaptureExited(ev captureExitedEvent) {
	attrs := []logging.Attr{
		logging.String(logging.FieldSource, string(ev.kind)),
		logging.Int("exit_code", ev.exitCode),
		logging.String(logging.FieldEventType, "capture_exited"),
	}
	if rec := w.active; rec != nil {
		attrs = append(attrs, logging.String(logging.FieldRecording, rec.baseName))
	}
	w.logger.Info("capture subprocess exited", logging.Args(attrs...)...)
}

// handleUploadFinished refreshes the published status once an upload stage
// settles. Journal rows and notifications are already handled by the upload
// coordinator.
func (w *Watcher) handleUploadFinished(ev uploadFinishedEvent) {
	if ev.result.Err != nil {
		w.logger.Debug("upload stage finished with error",
			logging.String("stage", ev.stage),
			logging.String(logging.FieldRecording, ev.result.BaseName),
			logging.Error(ev.result.Err),
		)
	} else {
		w.logger.Debug("upload stage finished",
			logging.String("stage", ev.stage),
			logging.String(logging.FieldRecording, ev.result.BaseName),
			logging.String("url", ev.result.URL),
		)
	}
	w.publishStatus(true)
}

// shutdown runs on the loop goroutine when the run context is cancelled.
func (w *Watcher) shutdown() {
	if rec := w.active; rec != nil {
		w.abortCycle(context.Background(), rec, journal.WatcherStopReason)
	}
	w.stopPoller()
	w.capture.StopSession()
	w.publishStatus(false)
}

func (w *Watcher) listTracked() []string {
	names := Scan(w.cfg.Watch.Directory, w.cfg.Watch.Extension)
	paths := make([]string, 0, len(names))
	for name := range names {
		paths = append(paths, filepath.Join(w.cfg.Watch.Directory, name))
	}
	slices.Sort(paths)
	return paths
}

// publishStatus copies the loop's state into the snapshot readable by
// Status().
func (w *Watcher) publishStatus(running bool) {
	snap := Snapshot{
		Running:    running,
		Phase:      w.phase,
		KnownFiles: len(w.known),
	}
	if rec := w.active; rec != nil {
		snap.ActiveBase = rec.baseName
		snap.ActivePath = rec.path
		snap.CycleID = rec.cycleID
	}
	w.statusMu.Lock()
	w.status = snap
	w.statusMu.Unlock()
}
