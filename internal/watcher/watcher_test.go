package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"uplink/internal/capture"
	"uplink/internal/config"
	"uplink/internal/devices"
	"uplink/internal/journal"
	"uplink/internal/logging"
	"uplink/internal/notify"
	"uplink/internal/testsupport"
	"uplink/internal/upload"
)

// callLog records fake collaborator calls in the order they happen so tests
// can assert lifecycle ordering across the upload and capture fakes.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

func (l *callLog) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, call := range l.calls {
		if strings.HasPrefix(call, prefix) {
			n++
		}
	}
	return n
}

type fakeUploads struct {
	log *callLog

	mu       sync.Mutex
	busy     bool
	holdReal bool
}

func (f *fakeUploads) DispatchPlaceholder(ctx context.Context, baseName string, journalID int64, done func(upload.Result)) {
	f.log.add("placeholder " + baseName)
	done(upload.Result{BaseName: baseName, JournalID: journalID})
}

func (f *fakeUploads) DispatchReal(ctx context.Context, path, baseName string, journalID int64, done func(upload.Result)) {
	f.log.add("real " + baseName)
	f.mu.Lock()
	hold := f.holdReal
	f.mu.Unlock()
	if hold {
		return
	}
	done(upload.Result{BaseName: baseName, JournalID: journalID})
}

func (f *fakeUploads) Uploading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *fakeUploads) setBusy(busy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = busy
}

func (f *fakeUploads) setHoldReal(hold bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdReal = hold
}

type fakeCapture struct {
	log *callLog

	mu       sync.Mutex
	onExit   func(kind capture.Kind, exitCode int)
	startErr error
}

func (f *fakeCapture) StartSession(baseName string, sel devices.Selection, onExit func(kind capture.Kind, exitCode int)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.onExit = onExit
	f.log.add("capture start " + baseName)
	return nil
}

// StopSession mirrors the real supervisor: stopping without a live session
// is a no-op, so only genuine stops land in the call log.
func (f *fakeCapture) StopSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onExit == nil {
		return
	}
	f.onExit = nil
	f.log.add("capture stop")
}

func (f *fakeCapture) setStartErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErr = err
}

type fakeSelection struct {
	mu  sync.Mutex
	sel devices.Selection
	err error
	n   int
}

func (s *fakeSelection) Resolve(*config.Config) (devices.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.sel, s.err
}

func (s *fakeSelection) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func (s *fakeSelection) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type fakeChanges struct {
	ch   chan []string
	once sync.Once
}

func newFakeChanges() *fakeChanges {
	return &fakeChanges{ch: make(chan []string, 8)}
}

func (c *fakeChanges) Start(context.Context) error { return nil }

func (c *fakeChanges) Events() <-chan []string { return c.ch }

func (c *fakeChanges) Close() error {
	c.once.Do(func() { close(c.ch) })
	return nil
}

// probeScript replays a fixed sequence of size samples, repeating the last
// one once exhausted.
type probeScript struct {
	mu      sync.Mutex
	samples []probeSample
	calls   int
}

type probeSample struct {
	size int64
	err  error
}

func (p *probeScript) probe(string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	if i >= len(p.samples) {
		i = len(p.samples) - 1
	}
	p.calls++
	s := p.samples[i]
	return s.size, s.err
}

// growingProbe reports a strictly increasing size, so a recording watched
// through it never stabilizes.
type growingProbe struct {
	mu   sync.Mutex
	size int64
}

func (p *growingProbe) probe(string) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.size += 1024
	return p.size, nil
}

type fixture struct {
	cfg       *config.Config
	store     *journal.Store
	w         *Watcher
	uploads   *fakeUploads
	capture   *fakeCapture
	selection *fakeSelection
	log       *callLog

	mu      sync.Mutex
	changes *fakeChanges
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()

	opts = append([]testsupport.ConfigOption{testsupport.WithCaptureEnabled(true)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Watch.RescanIntervalSeconds = 0

	log := &callLog{}
	f := &fixture{
		cfg:       cfg,
		store:     testsupport.MustOpenStore(t, cfg),
		uploads:   &fakeUploads{log: log},
		capture:   &fakeCapture{log: log},
		selection: &fakeSelection{},
		log:       log,
	}
	f.w = New(cfg, logging.NewNop(), Deps{
		Journal:   f.store,
		Uploads:   f.uploads,
		Capture:   f.capture,
		Selection: f.selection,
		Changes:   f.nextChanges,
	})
	f.w.pollInterval = 5 * time.Millisecond
	return f
}

func (f *fixture) nextChanges(string, *slog.Logger) notify.Notifier {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = newFakeChanges()
	return f.changes
}

// send pushes a change batch through the current notifier, the way inotify
// would announce directory entries.
func (f *fixture) send(names ...string) {
	f.mu.Lock()
	c := f.changes
	f.mu.Unlock()
	c.ch <- names
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	if err := f.w.Start(context.Background()); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	t.Cleanup(f.w.Stop)
}

// primeDirect wires the loop-owned state so a test can call the event
// handlers synchronously, without the watcher's goroutines, and assert every
// intermediate transition deterministically.
func (f *fixture) primeDirect(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	f.w.runCtx = ctx
	f.w.events = make(chan event, eventBuffer)
	f.w.loopDone = make(chan struct{})
	f.w.known = Scan(f.cfg.Watch.Directory, f.cfg.Watch.Extension)
	f.w.pollInterval = time.Hour
	t.Cleanup(func() {
		cancel()
		f.w.wg.Wait()
	})
}

func (f *fixture) writeRecording(t *testing.T, name string, size int64) string {
	t.Helper()
	path := filepath.Join(f.cfg.Watch.Directory, name)
	testsupport.WriteFile(t, path, size)
	return path
}

// stabilize feeds the two identical samples that are the minimum run
// finalizing the active recording.
func (f *fixture) stabilize(t *testing.T, size int64) {
	t.Helper()
	rec := f.w.active
	if rec == nil {
		t.Fatal("no active recording to stabilize")
	}
	f.w.handlePollSample(pollSampleEvent{cycleID: rec.cycleID, size: size, ok: true})
	f.w.handlePollSample(pollSampleEvent{cycleID: rec.cycleID, size: size, ok: true})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestScanListsTrackedFiles(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "standup.mp4"), 16)
	testsupport.WriteFile(t, filepath.Join(dir, "DEMO.MP4"), 16)
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), 16)
	if err := os.MkdirAll(filepath.Join(dir, "folder.mp4"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	known := Scan(dir, ".mp4")
	got := make([]string, 0, len(known))
	for name := range known {
		got = append(got, name)
	}
	slices.Sort(got)
	want := []string{"DEMO.MP4", "standup.mp4"}
	if !slices.Equal(got, want) {
		t.Fatalf("scan = %v, want %v", got, want)
	}

	if empty := Scan(filepath.Join(dir, "missing"), ".mp4"); len(empty) != 0 {
		t.Fatalf("scan of missing dir = %v, want empty", empty)
	}
}

func TestDetectionClaimsFilenameOnce(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)
	f.writeRecording(t, "standup.mp4", 2048)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"standup.mp4"}})
	if f.w.active == nil {
		t.Fatal("expected an active recording after detection")
	}
	cid := f.w.active.cycleID
	if got := f.log.count("placeholder"); got != 1 {
		t.Fatalf("placeholder dispatches = %d, want 1", got)
	}
	rec, err := f.store.FindByCycleID(context.Background(), cid)
	if err != nil {
		t.Fatalf("journal row missing: %v", err)
	}
	if rec.Status != journal.StatusDetected {
		t.Fatalf("journal status = %s, want %s", rec.Status, journal.StatusDetected)
	}

	f.stabilize(t, 2048)
	if got := f.log.count("real"); got != 1 {
		t.Fatalf("real dispatches = %d, want 1", got)
	}

	// The filename stays claimed after its cycle ends. Announcing it again
	// must not begin a second one.
	f.w.handleFileChanged(fileChangedEvent{paths: []string{"standup.mp4"}})
	if f.w.active != nil {
		t.Fatal("claimed filename was detected a second time")
	}

	want := []string{"placeholder standup", "capture start standup", "capture stop", "real standup"}
	if got := f.log.snapshot(); !slices.Equal(got, want) {
		t.Fatalf("call order = %v, want %v", got, want)
	}
}

func TestStableAfterTwoEqualSamples(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)
	f.writeRecording(t, "clip.mp4", 1024)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"clip.mp4"}})
	cid := f.w.active.cycleID

	f.w.handlePollSample(pollSampleEvent{cycleID: cid, size: 1024, ok: true})
	if got := f.log.count("real"); got != 0 {
		t.Fatalf("real upload dispatched after a single sample")
	}
	f.w.handlePollSample(pollSampleEvent{cycleID: cid, size: 1024, ok: true})
	if got := f.log.count("real"); got != 1 {
		t.Fatalf("real dispatches = %d, want 1", got)
	}
	if f.w.active != nil {
		t.Fatal("slot still occupied after finalize")
	}
	if got := f.w.Status().Phase; got != PhaseIdle {
		t.Fatalf("phase = %s, want %s", got, PhaseIdle)
	}
}

func TestGrowthResetsStability(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)
	f.writeRecording(t, "clip.mp4", 1024)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"clip.mp4"}})
	cid := f.w.active.cycleID

	f.w.handlePollSample(pollSampleEvent{cycleID: cid, size: 1024, ok: true})
	f.w.handlePollSample(pollSampleEvent{cycleID: cid, size: 2048, ok: true})
	if got := f.log.count("real"); got != 0 {
		t.Fatal("real upload dispatched while the file was still growing")
	}
	f.w.handlePollSample(pollSampleEvent{cycleID: cid, size: 2048, ok: true})
	if got := f.log.count("real"); got != 1 {
		t.Fatalf("real dispatches = %d, want 1", got)
	}
}

func TestStaleSamplesFromOldCycleAreIgnored(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)
	f.writeRecording(t, "clip.mp4", 1024)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"clip.mp4"}})

	f.w.handlePollSample(pollSampleEvent{cycleID: "stale", size: 1024, ok: true})
	f.w.handlePollSample(pollSampleEvent{cycleID: "stale", size: 1024, ok: true})
	if got := f.log.count("real"); got != 0 {
		t.Fatal("stale samples finalized the live cycle")
	}
	f.w.handlePollSample(pollSampleEvent{cycleID: "stale", ok: false})
	if f.w.active == nil {
		t.Fatal("a stale failed sample aborted the live cycle")
	}

	f.stabilize(t, 1024)
	if got := f.log.count("real"); got != 1 {
		t.Fatalf("real dispatches = %d, want 1", got)
	}
}

func TestVanishedFileAbortsCycle(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)
	f.writeRecording(t, "clip.mp4", 1024)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"clip.mp4"}})
	cid := f.w.active.cycleID

	f.w.handlePollSample(pollSampleEvent{cycleID: cid, size: 1024, ok: true})
	f.w.handlePollSample(pollSampleEvent{cycleID: cid, ok: false})

	if f.w.active != nil {
		t.Fatal("cycle still active after the file vanished")
	}
	if got := f.log.count("real"); got != 0 {
		t.Fatal("real upload dispatched for a vanished file")
	}
	if got := f.log.count("capture stop"); got != 1 {
		t.Fatalf("capture stop count = %d, want 1", got)
	}

	rec, err := f.store.FindByCycleID(context.Background(), cid)
	if err != nil {
		t.Fatalf("journal row: %v", err)
	}
	if rec.Status != journal.StatusAborted {
		t.Fatalf("journal status = %s, want %s", rec.Status, journal.StatusAborted)
	}
	if !strings.Contains(rec.ErrorMessage, "disappeared") {
		t.Fatalf("abort reason = %q", rec.ErrorMessage)
	}

	// The name stays claimed even though the cycle never finished.
	f.w.handleFileChanged(fileChangedEvent{paths: []string{"clip.mp4"}})
	if f.w.active != nil {
		t.Fatal("vanished filename was claimed a second time")
	}
}

func TestBurstClaimsOnlyFirstFile(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)
	f.writeRecording(t, "alpha.mp4", 512)
	f.writeRecording(t, "beta.mp4", 512)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"alpha.mp4", "beta.mp4"}})
	if f.w.active == nil || f.w.active.baseName != "alpha" {
		t.Fatalf("active = %+v, want alpha", f.w.active)
	}
	if _, claimed := f.w.known["beta.mp4"]; claimed {
		t.Fatal("beta.mp4 was claimed while alpha was active")
	}

	f.stabilize(t, 512)

	// The second file of the burst is still detectable once the slot frees.
	f.w.handleFileChanged(fileChangedEvent{paths: []string{"beta.mp4"}})
	if f.w.active == nil || f.w.active.baseName != "beta" {
		t.Fatalf("active = %+v, want beta", f.w.active)
	}
	if got := f.log.count("placeholder"); got != 2 {
		t.Fatalf("placeholder dispatches = %d, want 2", got)
	}
}

func TestMissingFileIsNotClaimed(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"ghost.mp4"}})
	if f.w.active != nil {
		t.Fatal("cycle began for a file that does not exist")
	}

	// Once the file really lands, the same name is still detectable.
	f.writeRecording(t, "ghost.mp4", 256)
	f.w.handleFileChanged(fileChangedEvent{paths: []string{"ghost.mp4"}})
	if f.w.active == nil {
		t.Fatal("file was not detected after it appeared")
	}
}

func TestUntrackedNamesAreIgnored(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)
	f.writeRecording(t, "notes.txt", 64)
	f.writeRecording(t, "part.mp4.tmp", 64)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"notes.txt", "part.mp4.tmp"}})
	if f.w.active != nil {
		t.Fatalf("untracked name began a cycle: %+v", f.w.active)
	}

	f.writeRecording(t, "CLIP.MP4", 64)
	f.w.handleFileChanged(fileChangedEvent{paths: []string{"CLIP.MP4"}})
	if f.w.active == nil {
		t.Fatal("extension match should be case-insensitive")
	}
}

func TestEmptyBatchRescansDirectory(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)
	f.writeRecording(t, "clip.mp4", 128)

	f.w.handleFileChanged(fileChangedEvent{})
	if f.w.active == nil || f.w.active.baseName != "clip" {
		t.Fatalf("active = %+v, want clip", f.w.active)
	}
}

func TestCaptureDisabledSkipsSessions(t *testing.T) {
	f := newFixture(t, testsupport.WithCaptureEnabled(false))
	f.primeDirect(t)
	f.writeRecording(t, "clip.mp4", 128)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"clip.mp4"}})
	f.stabilize(t, 128)

	if got := f.selection.calls(); got != 0 {
		t.Fatalf("device resolution ran %d times with capture disabled", got)
	}
	want := []string{"placeholder clip", "real clip"}
	if got := f.log.snapshot(); !slices.Equal(got, want) {
		t.Fatalf("call order = %v, want %v", got, want)
	}
}

func TestUnresolvedDevicesSkipCaptureOnly(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)
	f.selection.setErr(errors.New("no screens detected"))
	f.writeRecording(t, "clip.mp4", 128)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"clip.mp4"}})
	if got := f.log.count("capture start"); got != 0 {
		t.Fatal("capture started despite unresolved devices")
	}

	f.stabilize(t, 128)
	if got := f.log.count("real"); got != 1 {
		t.Fatalf("real dispatches = %d, want 1", got)
	}
}

func TestCaptureStartErrorContinuesCycle(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)
	f.capture.setStartErr(errors.New("ffmpeg not found"))
	f.writeRecording(t, "clip.mp4", 128)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"clip.mp4"}})
	f.stabilize(t, 128)

	want := []string{"placeholder clip", "real clip"}
	if got := f.log.snapshot(); !slices.Equal(got, want) {
		t.Fatalf("call order = %v, want %v", got, want)
	}
}

func TestCaptureExitDoesNotEndCycle(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)
	f.writeRecording(t, "clip.mp4", 128)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"clip.mp4"}})
	f.w.handleCaptureExited(captureExitedEvent{kind: capture.KindScreen, exitCode: 1})

	if f.w.active == nil {
		t.Fatal("a capture exit ended the recording cycle")
	}
	f.stabilize(t, 128)
	if got := f.log.count("real"); got != 1 {
		t.Fatalf("real dispatches = %d, want 1", got)
	}
}

func TestSlotFreesWhileUploadStillRunning(t *testing.T) {
	f := newFixture(t)
	f.primeDirect(t)
	f.uploads.setHoldReal(true)
	f.writeRecording(t, "alpha.mp4", 128)

	f.w.handleFileChanged(fileChangedEvent{paths: []string{"alpha.mp4"}})
	f.stabilize(t, 128)

	// alpha's upload never completes, but a new recording must still be
	// detectable the moment the slot frees.
	f.writeRecording(t, "beta.mp4", 128)
	f.w.handleFileChanged(fileChangedEvent{paths: []string{"beta.mp4"}})
	if f.w.active == nil || f.w.active.baseName != "beta" {
		t.Fatalf("active = %+v, want beta", f.w.active)
	}
}

func TestWatcherSharesNewRecordingEndToEnd(t *testing.T) {
	f := newFixture(t)
	script := &probeScript{samples: []probeSample{{size: 4096}}}
	f.w.probe = script.probe
	f.start(t)

	f.writeRecording(t, "standup.mp4", 4096)
	f.send("standup.mp4")

	waitFor(t, "real upload dispatch", func() bool { return f.log.count("real") == 1 })

	want := []string{"placeholder standup", "capture start standup", "capture stop", "real standup"}
	if got := f.log.snapshot(); !slices.Equal(got, want) {
		t.Fatalf("call order = %v, want %v", got, want)
	}
	waitFor(t, "watcher to go idle", func() bool {
		snap := f.w.Status()
		return snap.Running && snap.Phase == PhaseIdle && snap.ActiveBase == ""
	})

	recs, err := f.store.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 1 || recs[0].BaseName != "standup" {
		t.Fatalf("journal rows = %+v, want one for standup", recs)
	}
}

func TestPreexistingFilesAreNeverDetected(t *testing.T) {
	f := newFixture(t)
	f.writeRecording(t, "old.mp4", 1024)
	script := &probeScript{samples: []probeSample{{size: 1024}}}
	f.w.probe = script.probe
	f.start(t)

	// Announce the preexisting file by name and through a rescan, then use
	// a genuinely new file as the ordering sentinel.
	f.send("old.mp4")
	f.send()
	f.writeRecording(t, "new.mp4", 1024)
	f.send("new.mp4")

	waitFor(t, "sentinel detection", func() bool { return f.log.count("placeholder new") == 1 })
	if got := f.log.count("placeholder old"); got != 0 {
		t.Fatalf("preexisting file was detected; log = %v", f.log.snapshot())
	}
}

func TestStopAbandonsActiveRecording(t *testing.T) {
	f := newFixture(t)
	grow := &growingProbe{}
	f.w.probe = grow.probe
	f.start(t)

	f.writeRecording(t, "endless.mp4", 1024)
	f.send("endless.mp4")
	waitFor(t, "polling to begin", func() bool { return f.w.Status().Phase == PhasePolling })
	cid := f.w.Status().CycleID

	f.w.Stop()

	if f.w.Running() {
		t.Fatal("watcher still running after Stop")
	}
	if got := f.log.count("real"); got != 0 {
		t.Fatal("real upload dispatched for an unfinished recording")
	}
	if got := f.log.count("capture stop"); got != 1 {
		t.Fatalf("capture stop count = %d, want 1", got)
	}

	rec, err := f.store.FindByCycleID(context.Background(), cid)
	if err != nil {
		t.Fatalf("journal row: %v", err)
	}
	if rec.Status != journal.StatusAborted {
		t.Fatalf("journal status = %s, want %s", rec.Status, journal.StatusAborted)
	}
	if rec.ErrorMessage != journal.WatcherStopReason {
		t.Fatalf("abort reason = %q, want %q", rec.ErrorMessage, journal.WatcherStopReason)
	}

	// Stopping again is a no-op.
	f.w.Stop()
}

func TestRestartAfterStopWatchesAgain(t *testing.T) {
	f := newFixture(t)
	script := &probeScript{samples: []probeSample{{size: 512}}}
	f.w.probe = script.probe
	f.start(t)

	if err := f.w.Start(context.Background()); err != nil {
		t.Fatalf("second start while running: %v", err)
	}
	f.w.Stop()
	if f.w.Running() {
		t.Fatal("watcher reports running after Stop")
	}

	if err := f.w.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	f.writeRecording(t, "after.mp4", 512)
	f.send("after.mp4")
	waitFor(t, "detection after restart", func() bool { return f.log.count("placeholder after") == 1 })
}

func TestPeriodicRescanCatchesUnannouncedFiles(t *testing.T) {
	f := newFixture(t)
	f.cfg.Watch.RescanIntervalSeconds = 1
	script := &probeScript{samples: []probeSample{{size: 256}}}
	f.w.probe = script.probe
	f.start(t)

	// Written without any change notification; only the periodic rescan
	// can find it.
	f.writeRecording(t, "missed.mp4", 256)
	waitFor(t, "rescan detection", func() bool { return f.log.count("placeholder missed") == 1 })
}

func TestStatusReportsUploadingFlag(t *testing.T) {
	f := newFixture(t)

	if snap := f.w.Status(); snap.Running || snap.Phase != PhaseIdle {
		t.Fatalf("zero-value status = %+v", snap)
	}
	f.uploads.setBusy(true)
	if !f.w.Status().Uploading {
		t.Fatal("uploading flag not reflected in status")
	}
	f.uploads.setBusy(false)
	if f.w.Status().Uploading {
		t.Fatal("uploading flag stuck after uploads drained")
	}
}
