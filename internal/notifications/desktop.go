package notifications

import (
	"context"
	"fmt"

	"github.com/gen2brain/beeep"
)

// desktopService raises notifications on the local desktop session.
// beeep is fire-and-forget with no request to cancel, so the context
// exists only to satisfy Service.
type desktopService struct{}

func newDesktopService() *desktopService {
	return &desktopService{}
}

func (d *desktopService) NotifyRecordingDetected(_ context.Context, baseName string) error {
	return d.notify("Uplink - Recording Detected", fmt.Sprintf("New recording: %s", baseName))
}

func (d *desktopService) NotifyShareReady(_ context.Context, baseName, url string) error {
	return d.notify("Uplink - Share Ready", fmt.Sprintf("%s is ready to share\n%s", baseName, url))
}

func (d *desktopService) NotifyUploadFailed(_ context.Context, baseName string, cause error) error {
	return d.notify("Uplink - Upload Failed", fmt.Sprintf("Upload failed for %s: %v", baseName, cause))
}

func (d *desktopService) NotifyError(_ context.Context, err error, contextLabel string) error {
	message := fmt.Sprintf("Error: %v", err)
	if contextLabel != "" {
		message = fmt.Sprintf("Error in %s: %v", contextLabel, err)
	}
	return d.notify("Uplink - Error", message)
}

func (d *desktopService) NotifyWatcherStarted(_ context.Context) error {
	return d.notify("Uplink - Watching", "Watching for new recordings")
}

func (d *desktopService) NotifyWatcherStopped(_ context.Context) error {
	return d.notify("Uplink - Stopped", "Stopped watching for recordings")
}

func (d *desktopService) TestNotification(_ context.Context) error {
	return d.notify("Uplink - Test", "Test notification from uplink")
}

func (d *desktopService) notify(title, message string) error {
	if err := beeep.Notify(title, message, ""); err != nil {
		return fmt.Errorf("desktop notification: %w", err)
	}
	return nil
}
