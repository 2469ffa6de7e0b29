package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"uplink/internal/logging"
)

// watchMask covers every way a recording can appear, change, or vanish in the
// watch directory.
const watchMask = unix.IN_CREATE | unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO | unix.IN_MODIFY | unix.IN_DELETE

type inotifyNotifier struct {
	dir    string
	logger *slog.Logger
	file   *os.File
	events chan []string

	mu      sync.Mutex
	running bool
	done    chan struct{}
	closed  sync.Once
	wg      sync.WaitGroup
}

// NewInotify creates an inotify-backed notifier for dir. The watch descriptor
// is registered immediately so no events are lost between construction and
// Start.
func NewInotify(dir string, logger *slog.Logger) (Notifier, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify init: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, dir, watchMask); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("inotify watch %s: %w", dir, err)
	}

	// The non-blocking fd registers with the runtime poller, so Close
	// interrupts a pending Read instead of leaking the goroutine.
	return &inotifyNotifier{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "notify"),
		file:   os.NewFile(uintptr(fd), "inotify"),
		events: make(chan []string, 16),
		done:   make(chan struct{}),
	}, nil
}

func (w *inotifyNotifier) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("notifier already running")
	}
	w.running = true

	w.wg.Add(1)
	go w.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = w.Close()
		case <-w.done:
		}
	}()

	w.logger.Debug("inotify watch established", logging.String("directory", w.dir))
	return nil
}

func (w *inotifyNotifier) Events() <-chan []string {
	return w.events
}

func (w *inotifyNotifier) Close() error {
	var err error
	w.closed.Do(func() {
		close(w.done)
		err = w.file.Close()
		w.wg.Wait()
	})
	return err
}

func (w *inotifyNotifier) readLoop() {
	defer w.wg.Done()
	defer close(w.events)

	buf := make([]byte, 4096)
	for {
		n, err := w.file.Read(buf)
		if err != nil {
			if !errors.Is(err, os.ErrClosed) {
				w.logger.Warn("inotify read failed; relying on periodic rescans",
					logging.Error(err),
					logging.String(logging.FieldEventType, "inotify_read_failed"),
					logging.String(logging.FieldImpact, "change notifications stopped for this watch"),
				)
			}
			return
		}

		names, lost := parseEvents(buf[:n])
		if lost {
			w.logger.Warn("inotify event queue overflowed",
				logging.String(logging.FieldEventType, "inotify_overflow"),
				logging.String(logging.FieldErrorHint, "raise fs.inotify.max_queued_events if this repeats"),
			)
		}
		select {
		case w.events <- names:
		case <-w.done:
			return
		}
	}
}

// parseEvents walks the packed inotify event records in buf. It returns the
// entry names seen plus whether the kernel reported a queue overflow.
func parseEvents(buf []byte) ([]string, bool) {
	var names []string
	lost := false
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		nameLen := int(raw.Len)
		if raw.Mask&unix.IN_Q_OVERFLOW != 0 {
			lost = true
		}
		if nameLen > 0 && offset+unix.SizeofInotifyEvent+nameLen <= len(buf) {
			name := strings.TrimRight(string(buf[offset+unix.SizeofInotifyEvent:offset+unix.SizeofInotifyEvent+nameLen]), "\x00")
			if name != "" {
				names = append(names, name)
			}
		}
		offset += unix.SizeofInotifyEvent + nameLen
	}
	return names, lost
}
