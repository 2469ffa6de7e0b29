package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	if err := c.normalizeCapture(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizeDevices()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.JournalDB) == "" {
		c.Paths.JournalDB = defaultJournalDB
	}
	if c.Paths.JournalDB, err = expandPath(c.Paths.JournalDB); err != nil {
		return fmt.Errorf("paths.journal_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatch() error {
	var err error
	if strings.TrimSpace(c.Watch.Directory) == "" {
		c.Watch.Directory = defaultWatchDirectory
	}
	if c.Watch.Directory, err = expandPath(c.Watch.Directory); err != nil {
		return fmt.Errorf("watch.directory: %w", err)
	}
	c.Watch.Extension = strings.ToLower(strings.TrimSpace(c.Watch.Extension))
	if c.Watch.Extension == "" {
		c.Watch.Extension = defaultWatchExtension
	}
	if !strings.HasPrefix(c.Watch.Extension, ".") {
		c.Watch.Extension = "." + c.Watch.Extension
	}
	if c.Watch.PollIntervalSeconds <= 0 {
		c.Watch.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Watch.StabilityThreshold <= 0 {
		c.Watch.StabilityThreshold = defaultStabilityThreshold
	}
	if c.Watch.RescanIntervalSeconds <= 0 {
		c.Watch.RescanIntervalSeconds = defaultRescanIntervalSeconds
	}
	return nil
}

func (c *Config) normalizeCapture() error {
	var err error
	if strings.TrimSpace(c.Capture.OutputDir) == "" {
		c.Capture.OutputDir = defaultCaptureOutputDir
	}
	if c.Capture.OutputDir, err = expandPath(c.Capture.OutputDir); err != nil {
		return fmt.Errorf("capture.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Capture.PresetPath) == "" {
		c.Capture.PresetPath = defaultCapturePresetPath
	}
	if c.Capture.PresetPath, err = expandPath(c.Capture.PresetPath); err != nil {
		return fmt.Errorf("capture.preset_path: %w", err)
	}
	if c.Capture.GraceSeconds <= 0 {
		c.Capture.GraceSeconds = defaultCaptureGraceSeconds
	}
	return nil
}

func (c *Config) normalizeStorage() {
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	if c.Storage.Region == "" {
		c.Storage.Region = defaultStorageRegion
	}
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Prefix = strings.Trim(strings.TrimSpace(c.Storage.Prefix), "/")
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.PublicBaseURL), "/")
	c.Storage.AccessKey = strings.TrimSpace(c.Storage.AccessKey)
	if c.Storage.AccessKey == "" {
		if value, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok {
			c.Storage.AccessKey = strings.TrimSpace(value)
		}
	}
	c.Storage.SecretKey = strings.TrimSpace(c.Storage.SecretKey)
	if c.Storage.SecretKey == "" {
		if value, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok {
			c.Storage.SecretKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeDevices() {
	c.Devices.Screen = strings.TrimSpace(c.Devices.Screen)
	c.Devices.Camera = strings.TrimSpace(c.Devices.Camera)
	if c.Devices.Camera == "" {
		c.Devices.Camera = CameraNone
	}
	c.Devices.Audio = strings.TrimSpace(c.Devices.Audio)
	if c.Devices.Audio == "" {
		c.Devices.Audio = AudioDefault
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
