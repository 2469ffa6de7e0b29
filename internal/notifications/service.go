package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"uplink/internal/config"
)

const userAgent = "Uplink-Go/0.1.0"

// Service defines the notification surface exposed to lifecycle components.
type Service interface {
	NotifyRecordingDetected(ctx context.Context, baseName string) error
	NotifyShareReady(ctx context.Context, baseName, url string) error
	NotifyUploadFailed(ctx context.Context, baseName string, cause error) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	NotifyWatcherStarted(ctx context.Context) error
	NotifyWatcherStopped(ctx context.Context) error
	TestNotification(ctx context.Context) error
}

// NewService builds the notification fan-out from the config: a desktop
// backend when enabled, an ntfy backend when a topic is configured, and a
// noop service when neither applies.
func NewService(cfg *config.Config) Service {
	var backends []Service
	if cfg.Notifications.Desktop {
		backends = append(backends, newDesktopService())
	}
	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
		backends = append(backends, newNtfyService(topic, timeout))
	}
	if len(backends) == 0 {
		return noopService{}
	}
	return &fanoutService{cfg: cfg, backends: backends}
}

// NewNoop returns a service that drops every notification.
func NewNoop() Service {
	return noopService{}
}

type fanoutService struct {
	cfg      *config.Config
	backends []Service
}

func (f *fanoutService) NotifyRecordingDetected(ctx context.Context, baseName string) error {
	if !f.cfg.Notifications.Detected {
		return nil
	}
	return f.each(func(s Service) error { return s.NotifyRecordingDetected(ctx, baseName) })
}

func (f *fanoutService) NotifyShareReady(ctx context.Context, baseName, url string) error {
	if !f.cfg.Notifications.ShareReady {
		return nil
	}
	return f.each(func(s Service) error { return s.NotifyShareReady(ctx, baseName, url) })
}

func (f *fanoutService) NotifyUploadFailed(ctx context.Context, baseName string, cause error) error {
	if !f.cfg.Notifications.Errors {
		return nil
	}
	return f.each(func(s Service) error { return s.NotifyUploadFailed(ctx, baseName, cause) })
}

func (f *fanoutService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !f.cfg.Notifications.Errors {
		return nil
	}
	return f.each(func(s Service) error { return s.NotifyError(ctx, err, contextLabel) })
}

func (f *fanoutService) NotifyWatcherStarted(ctx context.Context) error {
	return f.each(func(s Service) error { return s.NotifyWatcherStarted(ctx) })
}

func (f *fanoutService) NotifyWatcherStopped(ctx context.Context) error {
	return f.each(func(s Service) error { return s.NotifyWatcherStopped(ctx) })
}

func (f *fanoutService) TestNotification(ctx context.Context) error {
	return f.each(func(s Service) error { return s.TestNotification(ctx) })
}

// each delivers to every backend; one backend failing never starves another.
func (f *fanoutService) each(deliver func(Service) error) error {
	var errs []error
	for _, backend := range f.backends {
		if err := deliver(backend); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopService struct{}

func (noopService) NotifyRecordingDetected(context.Context, string) error   { return nil }
func (noopService) NotifyShareReady(context.Context, string, string) error  { return nil }
func (noopService) NotifyUploadFailed(context.Context, string, error) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error        { return nil }
func (noopService) NotifyWatcherStarted(context.Context) error              { return nil }
func (noopService) NotifyWatcherStopped(context.Context) error              { return nil }
func (noopService) TestNotification(context.Context) error                  { return nil }
