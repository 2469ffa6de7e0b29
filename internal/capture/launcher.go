package capture

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// Handle controls one launched capture subprocess.
type Handle interface {
	PID() int
	Running() bool
	Signal(sig os.Signal) error
	Kill() error
}

// Launcher starts capture subprocesses. The exit callback fires exactly once
// from a background goroutine when the process finishes, with the process
// exit code (-1 when terminated by signal).
type Launcher interface {
	Launch(name string, args []string, logPath string, onExit func(exitCode int)) (Handle, error)
}

// NewExecLauncher returns the production launcher backed by os/exec.
//
// Processes are intentionally not bound to a context: sessions end via
// StopSignal so encoders can finalize their containers, and the supervisor's
// sweep guarantees termination regardless.
func NewExecLauncher() Launcher {
	return execLauncher{}
}

type execLauncher struct{}

func (execLauncher) Launch(name string, args []string, logPath string, onExit func(exitCode int)) (Handle, error) {
	cmd := exec.Command(name, args...) //nolint:gosec

	var logFile *os.File
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open capture log %s: %w", logPath, err)
		}
		logFile = f
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, fmt.Errorf("start %s: %w", name, err)
	}

	handle := &execHandle{cmd: cmd}
	go func() {
		_ = cmd.Wait()
		if logFile != nil {
			_ = logFile.Close()
		}
		handle.mu.Lock()
		handle.exited = true
		handle.mu.Unlock()
		if onExit != nil {
			onExit(cmd.ProcessState.ExitCode())
		}
	}()
	return handle, nil
}

type execHandle struct {
	cmd *exec.Cmd

	mu     sync.Mutex
	exited bool
}

func (h *execHandle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *execHandle) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.exited
}

func (h *execHandle) Signal(sig os.Signal) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited || h.cmd.Process == nil {
		return os.ErrProcessDone
	}
	return h.cmd.Process.Signal(sig)
}

func (h *execHandle) Kill() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.exited || h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}
