package notify

import (
	"context"
	"log/slog"

	"uplink/internal/logging"
)

// Notifier surfaces change hints for a single watched directory.
//
// Events delivers batches of entry names that changed since the last batch.
// Names are hints only: implementations may deliver nil batches that simply
// mean "something changed, rescan". The channel closes after Close or when
// the Start context is canceled.
type Notifier interface {
	Start(ctx context.Context) error
	Events() <-chan []string
	Close() error
}

// New returns an inotify-backed notifier for dir, falling back to mtime
// polling when inotify cannot be initialized.
func New(dir string, logger *slog.Logger) Notifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier, err := NewInotify(dir, logger)
	if err != nil {
		logger.Warn("inotify unavailable; falling back to directory polling",
			logging.Error(err),
			logging.String(logging.FieldEventType, "inotify_init_failed"),
			logging.String(logging.FieldErrorHint, "check inotify watch limits (fs.inotify.max_user_watches)"),
			logging.String(logging.FieldImpact, "new recordings detected with up to a second of extra latency"),
		)
		return NewPoll(dir, defaultPollInterval, logger)
	}
	return notifier
}
