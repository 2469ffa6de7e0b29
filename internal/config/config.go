package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"uplink/internal/fileutil"
)

//go:embed sample_config.json
var sampleConfig string

// ErrMalformed reports a settings file that could not be parsed. Load returns
// defaults alongside it so the watcher can keep running.
var ErrMalformed = errors.New("malformed config file")

// CameraNone is the selected-camera sentinel meaning "record no camera".
// It is distinct from an empty catalog: a camera may be attached and still
// deliberately unselected.
const CameraNone = "none"

// AudioDefault selects the system default PulseAudio source.
const AudioDefault = "default"

// Paths contains directory configuration for daemon state.
type Paths struct {
	LogDir    string `json:"log_dir"`
	JournalDB string `json:"journal_db"`
}

// Watch contains configuration for the recording directory watcher.
type Watch struct {
	Directory             string `json:"directory"`
	Extension             string `json:"extension"`
	PollIntervalSeconds   int    `json:"poll_interval_seconds"`
	StabilityThreshold    int    `json:"stability_threshold"`
	RescanIntervalSeconds int    `json:"rescan_interval_seconds"`
}

// Capture contains configuration for raw source capture subprocesses.
type Capture struct {
	Enabled      bool   `json:"enabled"`
	OutputDir    string `json:"output_dir"`
	PresetPath   string `json:"preset_path"`
	GraceSeconds int    `json:"grace_seconds"`
}

// Storage contains configuration for the object-store destination.
type Storage struct {
	Bucket        string `json:"bucket"`
	Region        string `json:"region"`
	Endpoint      string `json:"endpoint"`
	Prefix        string `json:"prefix"`
	PublicBaseURL string `json:"public_base_url"`
	AccessKey     string `json:"access_key"`
	SecretKey     string `json:"secret_key"`
	CopyLink      bool   `json:"copy_link"`
}

// Devices contains the persisted device selections, by stable identifier.
type Devices struct {
	Screen string `json:"screen"`
	Camera string `json:"camera"`
	Audio  string `json:"audio"`
}

// Notifications contains configuration for desktop and ntfy push notifications.
type Notifications struct {
	Desktop        bool   `json:"desktop"`
	NtfyTopic      string `json:"ntfy_topic"`
	RequestTimeout int    `json:"request_timeout"`
	Detected       bool   `json:"detected"`
	ShareReady     bool   `json:"share_ready"`
	Errors         bool   `json:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `json:"format"`
	Level         string `json:"level"`
	RetentionDays int    `json:"retention_days"`
}

// Config encapsulates all configuration values for uplink.
//
// Configuration sections by subsystem:
//   - Paths: log and journal locations
//   - Watch: directory, tracked extension, stability tuning
//   - Capture: source-capture toggle, output directory, termination grace
//   - Storage: bucket, region/endpoint, credentials, public URL shape
//   - Devices: selected screen / camera / audio identifiers
//   - Notifications: desktop and ntfy routing
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `json:"paths"`
	Watch         Watch         `json:"watch"`
	Capture       Capture       `json:"capture"`
	Storage       Storage       `json:"storage"`
	Devices       Devices       `json:"devices"`
	Notifications Notifications `json:"notifications"`
	Logging       Logging       `json:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/uplink/config.json")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
//
// A missing file is not an error. A file that cannot be parsed yields the
// defaults plus an error wrapping ErrMalformed; callers should warn and
// continue with the returned config.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	var parseErr error
	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			cfg = Default()
			parseErr = fmt.Errorf("%w: %s: %v", ErrMalformed, resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, parseErr
}

// Save writes the configuration back to path as indented JSON. The file is
// rewritten on every setting change so disk state tracks the live selection.
func (c *Config) Save(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("save config: empty path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("UPLINK_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("uplink.json")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation. The
// watch directory is included so the watcher can start against a fresh home.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, filepath.Dir(c.Paths.JournalDB), c.Watch.Directory} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Capture.Enabled && strings.TrimSpace(c.Capture.OutputDir) != "" {
		if err := os.MkdirAll(c.Capture.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create capture output directory %q: %w", c.Capture.OutputDir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for source capture.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// SocketPath returns the daemon IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "uplink.sock")
}

// PIDPath returns the daemon PID file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.LogDir, "uplink.pid")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "uplink.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
