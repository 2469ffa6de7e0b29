package notify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"uplink/internal/logging"
)

const defaultPollInterval = time.Second

type pollNotifier struct {
	dir      string
	interval time.Duration
	logger   *slog.Logger
	events   chan []string

	mu      sync.Mutex
	running bool
	done    chan struct{}
	closed  sync.Once
	wg      sync.WaitGroup
}

// NewPoll creates a notifier that samples the directory mtime on a fixed
// interval and emits a nil batch whenever it advances. It trades latency for
// working everywhere.
func NewPoll(dir string, interval time.Duration, logger *slog.Logger) Notifier {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &pollNotifier{
		dir:      dir,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "notify"),
		events:   make(chan []string, 16),
		done:     make(chan struct{}),
	}
}

func (p *pollNotifier) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("notifier already running")
	}
	p.running = true

	p.wg.Add(1)
	go p.loop()
	go func() {
		select {
		case <-ctx.Done():
			_ = p.Close()
		case <-p.done:
		}
	}()
	return nil
}

func (p *pollNotifier) Events() <-chan []string {
	return p.events
}

func (p *pollNotifier) Close() error {
	p.closed.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
	return nil
}

func (p *pollNotifier) loop() {
	defer p.wg.Done()
	defer close(p.events)

	last := p.sample()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			current := p.sample()
			if current.Equal(last) {
				continue
			}
			last = current
			select {
			case p.events <- nil:
			case <-p.done:
				return
			}
		}
	}
}

func (p *pollNotifier) sample() time.Time {
	info, err := os.Stat(p.dir)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
