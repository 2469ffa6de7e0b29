package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"uplink/internal/config"
	"uplink/internal/logging"
)

// ErrDeviceNotFound indicates a configured device is missing from the
// current inventory.
var ErrDeviceNotFound = errors.New("device not found")

// Selection kinds accepted by Validate and the devices select command.
const (
	KindScreen = "screen"
	KindCamera = "camera"
	KindAudio  = "audio"
)

type commandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.Output()
}

// Selection is the concrete device set a capture session records from.
type Selection struct {
	Screen        Screen
	Camera        Camera
	CameraEnabled bool
	AudioSource   string
}

// Catalog caches the most recent device inventory.
type Catalog struct {
	runner   commandRunner
	logger   *slog.Logger
	devGlob  string
	sysfsDir string

	mu  sync.Mutex
	inv Inventory
}

// NewCatalog builds a catalog that probes live system state.
func NewCatalog(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Catalog{
		runner:   execCommandRunner{},
		logger:   logging.NewComponentLogger(logger, "devices"),
		devGlob:  "/dev/video*",
		sysfsDir: defaultSysfsVideoDir,
	}
}

// Refresh probes screens, cameras, and audio sources, replacing the cached
// inventory. Probe failures are logged and leave that device class empty so a
// headless or audio-less host still reports what it has.
func (c *Catalog) Refresh(ctx context.Context) Inventory {
	inv := Inventory{RefreshedAt: time.Now()}

	screens, err := listScreens(ctx, c.runner)
	if err != nil {
		c.logger.Warn("screen enumeration failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "device_probe_failed"),
			logging.String(logging.FieldErrorHint, "check that an X session is running and DISPLAY is set"),
			logging.String(logging.FieldImpact, "screen capture unavailable until the next refresh"),
		)
	}
	if len(screens) == 0 {
		if display := strings.TrimSpace(os.Getenv("DISPLAY")); display != "" {
			// Whole-display pseudo screen: zero geometry, which the capture
			// command turns into a full-root x11grab.
			screens = []Screen{{Output: display, Primary: true}}
			c.logger.Info("falling back to whole-display capture",
				logging.String("display", display),
			)
		}
	}
	inv.Screens = screens

	cameras, err := listCameras(c.devGlob, c.sysfsDir)
	if err != nil {
		c.logger.Warn("camera enumeration failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "device_probe_failed"),
		)
	}
	inv.Cameras = cameras

	audio, err := listAudioSources(ctx, c.runner)
	if err != nil {
		c.logger.Warn("audio enumeration failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "device_probe_failed"),
			logging.String(logging.FieldErrorHint, "check that PulseAudio or PipeWire's pactl shim is installed"),
		)
	}
	inv.Audio = audio

	c.mu.Lock()
	c.inv = inv
	c.mu.Unlock()

	c.logger.Debug("device inventory refreshed",
		logging.Int("screens", len(inv.Screens)),
		logging.Int("cameras", len(inv.Cameras)),
		logging.Int("audio_sources", len(inv.Audio)),
	)
	return inv
}

// Snapshot returns the cached inventory without probing.
func (c *Catalog) Snapshot() Inventory {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inv
}

// Resolve maps the configured device names onto the cached inventory.
func (c *Catalog) Resolve(cfg *config.Config) (Selection, error) {
	inv := c.Snapshot()
	return ResolveSelection(inv, cfg)
}

// ResolveSelection maps configured device names onto an inventory snapshot.
// An empty screen selection means the primary output, an empty camera
// selection means the first camera, and an empty audio selection means the
// PulseAudio default source. The camera sentinel "none" disables camera
// capture outright.
func ResolveSelection(inv Inventory, cfg *config.Config) (Selection, error) {
	var sel Selection

	switch screen := strings.TrimSpace(cfg.Devices.Screen); screen {
	case "":
		primary, ok := inv.PrimaryScreen()
		if !ok {
			return Selection{}, fmt.Errorf("%w: no connected screens", ErrDeviceNotFound)
		}
		sel.Screen = primary
	default:
		found, ok := inv.FindScreen(screen)
		if !ok {
			return Selection{}, fmt.Errorf("%w: screen %q is not connected", ErrDeviceNotFound, screen)
		}
		sel.Screen = found
	}

	switch camera := strings.TrimSpace(cfg.Devices.Camera); camera {
	case config.CameraNone:
		sel.CameraEnabled = false
	case "":
		if len(inv.Cameras) > 0 {
			sel.Camera = inv.Cameras[0]
			sel.CameraEnabled = true
		}
	default:
		found, ok := inv.FindCamera(camera)
		if !ok {
			return Selection{}, fmt.Errorf("%w: camera %q is not present", ErrDeviceNotFound, camera)
		}
		sel.Camera = found
		sel.CameraEnabled = true
	}

	switch audio := strings.TrimSpace(cfg.Devices.Audio); audio {
	case "", config.AudioDefault:
		sel.AudioSource = config.AudioDefault
	default:
		found, ok := inv.FindAudio(audio)
		if !ok {
			return Selection{}, fmt.Errorf("%w: audio source %q is not present", ErrDeviceNotFound, audio)
		}
		sel.AudioSource = found.Name
	}

	return sel, nil
}

// Validate checks a devices-select request against the cached inventory.
func (c *Catalog) Validate(kind, value string) error {
	inv := c.Snapshot()
	value = strings.TrimSpace(value)

	switch kind {
	case KindScreen:
		if _, ok := inv.FindScreen(value); !ok {
			return fmt.Errorf("%w: screen %q is not connected", ErrDeviceNotFound, value)
		}
	case KindCamera:
		if value == config.CameraNone {
			return nil
		}
		if _, ok := inv.FindCamera(value); !ok {
			return fmt.Errorf("%w: camera %q is not present", ErrDeviceNotFound, value)
		}
	case KindAudio:
		if value == config.AudioDefault {
			return nil
		}
		if _, ok := inv.FindAudio(value); !ok {
			return fmt.Errorf("%w: audio source %q is not present", ErrDeviceNotFound, value)
		}
	default:
		return fmt.Errorf("unknown device kind %q (expected %s, %s, or %s)", kind, KindScreen, KindCamera, KindAudio)
	}
	return nil
}
