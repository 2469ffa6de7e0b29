package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"uplink/internal/config"
	"uplink/internal/journal"
	"uplink/internal/logging"
	"uplink/internal/notifications"
	"uplink/internal/storage"
)

// Result reports the outcome of an upload phase back to the caller's event
// loop.
type Result struct {
	BaseName  string
	JournalID int64
	Dest      string
	URL       string
	Err       error
}

// Coordinator drives both upload phases for a recording. The placeholder is
// written the moment a recording is detected; the real asset replaces it
// after the file stops growing. The real upload clears the destination
// before writing, so a viewer sees the placeholder, a brief absence, or the
// final video and never a mix.
type Coordinator struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     storage.ObjectStore
	journal   *journal.Store
	notifier  notifications.Service
	publisher Publisher

	inflight atomic.Int32
}

// NewCoordinator wires the coordinator to its collaborators. logger,
// notifier, and publisher may be nil; no-op stand-ins are used in their
// place.
func NewCoordinator(cfg *config.Config, logger *slog.Logger, store storage.ObjectStore, journalStore *journal.Store, notifier notifications.Service, publisher Publisher) *Coordinator {
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	if publisher == nil {
		publisher = NewNoopPublisher()
	}
	return &Coordinator{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "upload"),
		store:     store,
		journal:   journalStore,
		notifier:  notifier,
		publisher: publisher,
	}
}

// Dest returns the destination object name for a recording. Both phases
// target the same name, so replacing the placeholder needs no coordination
// beyond ordering.
func (c *Coordinator) Dest(baseName string) string {
	return baseName + c.cfg.Watch.Extension
}

// Uploading reports whether a real upload is in flight, for the status
// surface.
func (c *Coordinator) Uploading() bool {
	return c.inflight.Load() > 0
}

// DispatchPlaceholder runs UploadPlaceholder on its own goroutine. done, if
// non-nil, receives the Result on that goroutine; callers are expected to
// marshal it back onto their own loop.
func (c *Coordinator) DispatchPlaceholder(ctx context.Context, baseName string, journalID int64, done func(Result)) {
	go func() {
		res := c.UploadPlaceholder(ctx, baseName, journalID)
		if done != nil {
			done(res)
		}
	}()
}

// DispatchReal runs UploadReal on its own goroutine. done, if non-nil,
// receives the Result on that goroutine.
func (c *Coordinator) DispatchReal(ctx context.Context, path, baseName string, journalID int64, done func(Result)) {
	go func() {
		res := c.UploadReal(ctx, path, baseName, journalID)
		if done != nil {
			done(res)
		}
	}()
}

// UploadPlaceholder writes the self-refreshing processing page to the
// destination, makes it world readable, and hands the share URL to the
// publisher. Failures are logged and reported, never retried: the real
// upload clears the destination unconditionally, so a partial placeholder
// cannot poison the rest of the cycle.
func (c *Coordinator) UploadPlaceholder(ctx context.Context, baseName string, journalID int64) Result {
	dest := c.Dest(baseName)
	res := Result{BaseName: baseName, JournalID: journalID, Dest: dest}

	body := placeholderHTML(baseName)
	if err := c.store.Put(ctx, dest, storage.ContentTypeHTML, storage.CacheControlNoCache, bytes.NewReader(body), int64(len(body))); err != nil {
		res.Err = fmt.Errorf("upload placeholder: %w", err)
	} else if err := c.store.SetPublicRead(ctx, dest); err != nil {
		res.Err = fmt.Errorf("publish placeholder: %w", err)
	}
	if res.Err != nil {
		logging.ErrorWithContext(c.logger, "placeholder upload failed", "placeholder_failed",
			logging.Error(res.Err),
			logging.String(logging.FieldRecording, baseName),
			logging.String("dest", dest),
			logging.String(logging.FieldErrorHint, "share link will not resolve until the real upload lands"),
		)
		if err := c.notifier.NotifyError(ctx, res.Err, "placeholder upload"); err != nil {
			c.logger.Warn("notification failed", logging.Error(err))
		}
		return res
	}

	res.URL = c.store.PublicURL(dest)
	c.publishLink(baseName, res.URL)
	c.logger.Info("placeholder live",
		logging.String(logging.FieldRecording, baseName),
		logging.String("url", res.URL),
		logging.String(logging.FieldEventType, "placeholder_uploaded"),
	)
	return res
}

// UploadReal replaces the destination object with the finished recording:
// delete whatever is there, write the video bytes, then open up read access.
// The three steps fail or succeed as one operation, and the uploading state
// is cleared on every path.
func (c *Coordinator) UploadReal(ctx context.Context, path, baseName string, journalID int64) Result {
	dest := c.Dest(baseName)
	res := Result{BaseName: baseName, JournalID: journalID, Dest: dest}

	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	c.markUploading(ctx, baseName, journalID)
	c.logger.Info("uploading recording",
		logging.String(logging.FieldRecording, baseName),
		logging.String("path", path),
		logging.String("dest", dest),
		logging.String(logging.FieldEventType, "upload_started"),
	)

	size, err := c.replaceObject(ctx, path, dest)
	if err != nil {
		res.Err = err
		c.finishFailed(ctx, baseName, journalID, err)
		return res
	}

	res.URL = c.store.PublicURL(dest)
	c.finishShared(ctx, baseName, journalID, res.URL, size)
	return res
}

// replaceObject performs delete, put, and set-ACL in order and reports the
// uploaded size. Delete tolerates a missing object, so a failed or absent
// placeholder never blocks the real upload.
func (c *Coordinator) replaceObject(ctx context.Context, path, dest string) (int64, error) {
	if err := c.store.Delete(ctx, dest); err != nil {
		return 0, fmt.Errorf("clear destination: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat recording: %w", err)
	}

	if err := c.store.Put(ctx, dest, videoContentType(c.cfg.Watch.Extension), storage.CacheControlNoCache, f, info.Size()); err != nil {
		return 0, fmt.Errorf("upload recording: %w", err)
	}
	if err := c.store.SetPublicRead(ctx, dest); err != nil {
		return 0, fmt.Errorf("publish recording: %w", err)
	}
	return info.Size(), nil
}

func (c *Coordinator) markUploading(ctx context.Context, baseName string, journalID int64) {
	if err := c.journal.MarkUploading(ctx, journalID); err != nil {
		c.logger.Warn("journal update failed",
			logging.Error(err),
			logging.String(logging.FieldRecording, baseName),
			logging.String("status", string(journal.StatusUploading)),
		)
	}
}

func (c *Coordinator) finishShared(ctx context.Context, baseName string, journalID int64, url string, size int64) {
	if err := c.journal.MarkShared(ctx, journalID, url, size); err != nil {
		c.logger.Warn("journal update failed",
			logging.Error(err),
			logging.String(logging.FieldRecording, baseName),
			logging.String("status", string(journal.StatusShared)),
		)
	}
	c.publishLink(baseName, url)
	if err := c.notifier.NotifyShareReady(ctx, baseName, url); err != nil {
		c.logger.Warn("notification failed", logging.Error(err))
	}
	c.logger.Info("recording shared",
		logging.String(logging.FieldRecording, baseName),
		logging.String("url", url),
		logging.Int64("size_bytes", size),
		logging.String(logging.FieldEventType, "upload_complete"),
	)
}

func (c *Coordinator) finishFailed(ctx context.Context, baseName string, journalID int64, cause error) {
	if err := c.journal.MarkFailed(ctx, journalID, cause.Error()); err != nil {
		c.logger.Warn("journal update failed",
			logging.Error(err),
			logging.String(logging.FieldRecording, baseName),
			logging.String("status", string(journal.StatusFailed)),
		)
	}
	if err := c.notifier.NotifyUploadFailed(ctx, baseName, cause); err != nil {
		c.logger.Warn("notification failed", logging.Error(err))
	}
	logging.ErrorWithContext(c.logger, "real upload failed", "upload_failed",
		logging.Error(cause),
		logging.String(logging.FieldRecording, baseName),
		logging.String(logging.FieldErrorHint, "re-run the upload manually once the cause is fixed"),
	)
}

// publishLink hands the URL to the configured publisher. Publishing is a
// convenience; failures are logged and otherwise ignored.
func (c *Coordinator) publishLink(baseName, url string) {
	if !c.cfg.Storage.CopyLink {
		return
	}
	if err := c.publisher.Publish(url); err != nil {
		c.logger.Warn("could not publish share link",
			logging.Error(err),
			logging.String(logging.FieldRecording, baseName),
			logging.String("url", url),
		)
	}
}

// videoContentType maps the tracked extension to the MIME type sent with the
// real upload.
func videoContentType(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "mkv":
		return "video/x-matroska"
	case "webm":
		return "video/webm"
	case "mov":
		return "video/quicktime"
	default:
		return storage.ContentTypeVideo
	}
}
