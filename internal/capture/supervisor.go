package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"uplink/internal/config"
	"uplink/internal/devices"
	"uplink/internal/logging"
)

// ErrSessionActive indicates startSession was called while a session is
// already running. Callers treat it as a logged no-op, never a failure.
var ErrSessionActive = errors.New("capture session already active")

// SourcesDirSuffix is appended to a recording's base name to form its raw
// sources folder.
const SourcesDirSuffix = "_sources"

type sessionProc struct {
	source Source
	handle Handle
}

type session struct {
	baseName string
	dir      string
	procs    []sessionProc
}

// Supervisor runs at most one capture session at a time.
type Supervisor struct {
	cfg      *config.Config
	logger   *slog.Logger
	launcher Launcher
	presets  Presets

	// afterFunc schedules the force-kill sweep; tests swap it to run the
	// sweep deterministically.
	afterFunc func(d time.Duration, f func()) *time.Timer

	mu      sync.Mutex
	current *session
}

// NewSupervisor builds a supervisor using the exec launcher and the preset
// file named in the config. A malformed preset file is reported once here and
// the defaults are used.
func NewSupervisor(cfg *config.Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewNop()
	}
	componentLogger := logging.NewComponentLogger(logger, "capture")

	presets, err := LoadPresets(cfg.Capture.PresetPath)
	if err != nil {
		componentLogger.Warn("capture presets unusable; using defaults",
			logging.Error(err),
			logging.String(logging.FieldEventType, "capture_presets_invalid"),
			logging.String(logging.FieldErrorHint, "fix or delete "+cfg.Capture.PresetPath),
		)
	}

	return &Supervisor{
		cfg:       cfg,
		logger:    componentLogger,
		launcher:  NewExecLauncher(),
		presets:   presets,
		afterFunc: time.AfterFunc,
	}
}

// StartSession launches the capture subprocesses for one recording. It is a
// logged no-op when capture is disabled or a session is already running. The
// optional onExit observer fires once per subprocess with its kind and exit
// code; when nil, exits are logged directly.
func (s *Supervisor) StartSession(baseName string, sel devices.Selection, onExit func(kind Kind, exitCode int)) error {
	if !s.cfg.Capture.Enabled {
		s.logger.Debug("capture disabled; skipping session",
			logging.String(logging.FieldRecording, baseName),
		)
		return nil
	}

	sess := &session{baseName: baseName}

	s.mu.Lock()
	if s.current != nil {
		active := s.current.baseName
		s.mu.Unlock()
		s.logger.Info("capture session already running; not starting another",
			logging.String(logging.FieldRecording, baseName),
			logging.String("active_session", active),
			logging.String(logging.FieldEventType, "capture_session_busy"),
		)
		return ErrSessionActive
	}
	// Reserve the slot before launching so a concurrent start cannot race in.
	s.current = sess
	s.mu.Unlock()

	dir := filepath.Join(s.cfg.Capture.OutputDir, baseName+SourcesDirSuffix)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.mu.Lock()
		if s.current == sess {
			s.current = nil
		}
		s.mu.Unlock()
		return fmt.Errorf("create sources dir: %w", err)
	}

	display := os.Getenv("DISPLAY")
	sources := BuildSources(sel, display)

	procs := make([]sessionProc, 0, len(sources))
	for _, source := range sources {
		name, args := source.Command(s.cfg.FFmpegBinary(), s.presets, filepath.Join(dir, source.OutputName()))
		logPath := filepath.Join(dir, string(source.Kind)+".log")

		kind := source.Kind
		exitObserver := func(code int) {
			if onExit != nil {
				onExit(kind, code)
				return
			}
			s.logger.Info("capture subprocess exited",
				logging.String("source", string(kind)),
				logging.String(logging.FieldRecording, baseName),
				logging.Int("exit_code", code),
				logging.String(logging.FieldEventType, "capture_exited"),
			)
		}

		handle, err := s.launcher.Launch(name, args, logPath, exitObserver)
		if err != nil {
			s.logger.Warn("capture subprocess failed to start; continuing without it",
				logging.Error(err),
				logging.String("source", string(source.Kind)),
				logging.String(logging.FieldRecording, baseName),
				logging.String(logging.FieldEventType, "capture_launch_failed"),
				logging.String(logging.FieldErrorHint, "check ffmpeg installation and device availability"),
				logging.String(logging.FieldImpact, "this source will be missing from the raw captures"),
			)
			continue
		}
		procs = append(procs, sessionProc{source: source, handle: handle})
	}

	s.mu.Lock()
	if s.current != sess {
		// Stopped while we were launching. Tear down what we started so
		// nothing outlives the session that owned it.
		s.mu.Unlock()
		s.stopProcs(baseName, procs)
		return nil
	}
	sess.dir = dir
	sess.procs = procs
	s.mu.Unlock()

	s.logger.Info("capture session started",
		logging.String(logging.FieldRecording, baseName),
		logging.String("sources_dir", dir),
		logging.String("sources", describeProcs(procs)),
		logging.String(logging.FieldEventType, "capture_session_started"),
	)
	return nil
}

// StopSession signals every subprocess of the active session and schedules
// the force-kill sweep. The session slot clears immediately: a new session
// may start while the sweep is still pending, and the sweep only touches the
// handles captured here.
func (s *Supervisor) StopSession() {
	s.mu.Lock()
	active := s.current
	s.current = nil
	s.mu.Unlock()

	if active == nil {
		return
	}

	s.stopProcs(active.baseName, active.procs)

	s.logger.Info("capture session stopped",
		logging.String(logging.FieldRecording, active.baseName),
		logging.String(logging.FieldEventType, "capture_session_stopped"),
	)
}

// stopProcs signals each subprocess and schedules the force-kill sweep over
// exactly these handles.
func (s *Supervisor) stopProcs(baseName string, procs []sessionProc) {
	for _, proc := range procs {
		sig := proc.source.StopSignal()
		if err := proc.handle.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Warn("failed to signal capture subprocess",
				logging.Error(err),
				logging.String("source", string(proc.source.Kind)),
				logging.Int("pid", proc.handle.PID()),
			)
		}
	}

	grace := time.Duration(s.cfg.Capture.GraceSeconds) * time.Second
	if grace <= 0 {
		grace = 3 * time.Second
	}

	s.afterFunc(grace, func() {
		for _, proc := range procs {
			if !proc.handle.Running() {
				continue
			}
			s.logger.Warn("capture subprocess ignored stop signal; killing",
				logging.String("source", string(proc.source.Kind)),
				logging.String(logging.FieldRecording, baseName),
				logging.Int("pid", proc.handle.PID()),
				logging.String(logging.FieldEventType, "capture_force_kill"),
			)
			_ = proc.handle.Kill()
		}
	})
}

// Active reports the base name of the running session, if any.
func (s *Supervisor) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", false
	}
	return s.current.baseName, true
}

func describeProcs(procs []sessionProc) string {
	if len(procs) == 0 {
		return "none"
	}
	parts := make([]string, len(procs))
	for i, proc := range procs {
		parts[i] = fmt.Sprintf("%s(pid %d)", proc.source.Kind, proc.handle.PID())
	}
	return strings.Join(parts, ", ")
}
