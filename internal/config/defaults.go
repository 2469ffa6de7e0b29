package config

const (
	defaultWatchDirectory        = "~/Videos"
	defaultWatchExtension        = ".mp4"
	defaultPollIntervalSeconds   = 1
	defaultStabilityThreshold    = 2
	defaultRescanIntervalSeconds = 2
	defaultCaptureOutputDir      = "~/Videos/sources"
	defaultCapturePresetPath     = "~/.config/uplink/capture.toml"
	defaultCaptureGraceSeconds   = 3
	defaultLogDir                = "~/.local/share/uplink/logs"
	defaultJournalDB             = "~/.local/share/uplink/journal.db"
	defaultStorageRegion         = "us-east-1"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultNotifyRequestTimeout  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			JournalDB: defaultJournalDB,
		},
		Watch: Watch{
			Directory:             defaultWatchDirectory,
			Extension:             defaultWatchExtension,
			PollIntervalSeconds:   defaultPollIntervalSeconds,
			StabilityThreshold:    defaultStabilityThreshold,
			RescanIntervalSeconds: defaultRescanIntervalSeconds,
		},
		Capture: Capture{
			Enabled:      false,
			OutputDir:    defaultCaptureOutputDir,
			PresetPath:   defaultCapturePresetPath,
			GraceSeconds: defaultCaptureGraceSeconds,
		},
		Storage: Storage{
			Region:   defaultStorageRegion,
			CopyLink: true,
		},
		Devices: Devices{
			Camera: CameraNone,
			Audio:  AudioDefault,
		},
		Notifications: Notifications{
			Desktop:        true,
			RequestTimeout: defaultNotifyRequestTimeout,
			Detected:       true,
			ShareReady:     true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
