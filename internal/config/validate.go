package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Normalization already clamps
// numeric fields and fills defaults, so failures here indicate combinations
// that cannot be repaired silently.
func (c *Config) Validate() error {
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWatch() error {
	if strings.TrimSpace(c.Watch.Directory) == "" {
		return errors.New("watch.directory must be set")
	}
	if c.Watch.Extension == "." {
		return errors.New("watch.extension must name a file extension, e.g. \".mp4\"")
	}
	if err := ensurePositiveMap(map[string]int{
		"watch.poll_interval_seconds":   c.Watch.PollIntervalSeconds,
		"watch.stability_threshold":     c.Watch.StabilityThreshold,
		"watch.rescan_interval_seconds": c.Watch.RescanIntervalSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCapture() error {
	if !c.Capture.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Capture.OutputDir) == "" {
		return errors.New("capture.output_dir must be set when capture.enabled is true")
	}
	if c.Capture.OutputDir == c.Watch.Directory {
		return errors.New("capture.output_dir must differ from watch.directory so raw sources are never treated as recordings")
	}
	if c.Capture.GraceSeconds <= 0 {
		return errors.New("capture.grace_seconds must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	// A missing bucket only disables uploads; that is reported at daemon
	// start, not here, so the watcher can run before storage is configured.
	if c.Storage.Endpoint != "" && !strings.Contains(c.Storage.Endpoint, "://") {
		return fmt.Errorf("storage.endpoint must be a URL, got %q", c.Storage.Endpoint)
	}
	if c.Storage.PublicBaseURL != "" && !strings.Contains(c.Storage.PublicBaseURL, "://") {
		return fmt.Errorf("storage.public_base_url must be a URL, got %q", c.Storage.PublicBaseURL)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive (seconds)")
	}
	return nil
}

// StorageConfigured reports whether uploads can be attempted at all.
func (c *Config) StorageConfigured() bool {
	return strings.TrimSpace(c.Storage.Bucket) != ""
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
