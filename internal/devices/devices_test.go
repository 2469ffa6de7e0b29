package devices

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"uplink/internal/config"
)

const sampleXrandr = `Screen 0: minimum 320 x 200, current 3840 x 1080, maximum 16384 x 16384
eDP-1 connected primary 1920x1080+0+0 (normal left inverted right x axis y axis) 344mm x 194mm
   1920x1080     60.05*+  59.97    59.96
HDMI-1 connected 1920x1080+1920+0 (normal left inverted right x axis y axis) 527mm x 296mm
   1920x1080     60.00*
DP-1 disconnected (normal left inverted right x axis y axis)
DP-2 connected (normal left inverted right x axis y axis)
`

func TestParseXrandrOutput(t *testing.T) {
	screens := parseXrandrOutput(sampleXrandr)
	if len(screens) != 2 {
		t.Fatalf("expected 2 screens, got %d: %#v", len(screens), screens)
	}

	primary := screens[0]
	if primary.Output != "eDP-1" || !primary.Primary {
		t.Fatalf("unexpected primary screen: %#v", primary)
	}
	if primary.Width != 1920 || primary.Height != 1080 || primary.OffsetX != 0 {
		t.Fatalf("unexpected primary geometry: %#v", primary)
	}

	secondary := screens[1]
	if secondary.Output != "HDMI-1" || secondary.Primary {
		t.Fatalf("unexpected secondary screen: %#v", secondary)
	}
	if secondary.OffsetX != 1920 {
		t.Fatalf("expected secondary offset 1920, got %d", secondary.OffsetX)
	}
}

func TestScreenRendersFfmpegTokens(t *testing.T) {
	screen := Screen{Output: "HDMI-1", Width: 2560, Height: 1440, OffsetX: 1920, OffsetY: 0}
	if got := screen.Size(); got != "2560x1440" {
		t.Fatalf("Size() = %q", got)
	}
	if got := screen.Origin(""); got != ":0.0+1920,0" {
		t.Fatalf("Origin() = %q", got)
	}
}

const samplePactl = `0	alsa_output.pci-0000_00_1f.3.analog-stereo.monitor	module-alsa-card.c	s16le 2ch 44100Hz	IDLE
1	alsa_input.pci-0000_00_1f.3.analog-stereo	module-alsa-card.c	s16le 2ch 44100Hz	SUSPENDED
`

func TestParsePactlSources(t *testing.T) {
	sources := parsePactlSources(samplePactl)
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
	if !sources[0].Monitor {
		t.Fatalf("expected first source to be a monitor: %#v", sources[0])
	}
	if sources[1].Monitor {
		t.Fatalf("expected second source to be a real input: %#v", sources[1])
	}
	if sources[1].Name != "alsa_input.pci-0000_00_1f.3.analog-stereo" {
		t.Fatalf("unexpected source name: %q", sources[1].Name)
	}
}

func TestListCamerasSkipsSecondaryNodes(t *testing.T) {
	base := t.TempDir()
	devDir := filepath.Join(base, "dev")
	sysfsDir := filepath.Join(base, "sys")

	if err := os.MkdirAll(devDir, 0o755); err != nil {
		t.Fatalf("mkdir dev: %v", err)
	}
	for name, index := range map[string]string{"video0": "0", "video1": "1", "video2": "0"} {
		if err := os.WriteFile(filepath.Join(devDir, name), nil, 0o644); err != nil {
			t.Fatalf("write dev node: %v", err)
		}
		nodeDir := filepath.Join(sysfsDir, name)
		if err := os.MkdirAll(nodeDir, 0o755); err != nil {
			t.Fatalf("mkdir sysfs node: %v", err)
		}
		if err := os.WriteFile(filepath.Join(nodeDir, "index"), []byte(index+"\n"), 0o644); err != nil {
			t.Fatalf("write index: %v", err)
		}
		if err := os.WriteFile(filepath.Join(nodeDir, "name"), []byte("Test Camera "+name+"\n"), 0o644); err != nil {
			t.Fatalf("write name: %v", err)
		}
	}

	cameras, err := listCameras(filepath.Join(devDir, "video*"), sysfsDir)
	if err != nil {
		t.Fatalf("listCameras failed: %v", err)
	}
	if len(cameras) != 2 {
		t.Fatalf("expected 2 cameras, got %d: %#v", len(cameras), cameras)
	}
	if cameras[0].Device != filepath.Join(devDir, "video0") {
		t.Fatalf("unexpected first camera: %#v", cameras[0])
	}
	if cameras[1].Device != filepath.Join(devDir, "video2") {
		t.Fatalf("unexpected second camera: %#v", cameras[1])
	}
	if cameras[0].Label != "Test Camera video0" {
		t.Fatalf("unexpected label: %q", cameras[0].Label)
	}
}

func testInventory() Inventory {
	return Inventory{
		Screens: []Screen{
			{Output: "eDP-1", Width: 1920, Height: 1080, Primary: true},
			{Output: "HDMI-1", Width: 2560, Height: 1440, OffsetX: 1920},
		},
		Cameras: []Camera{
			{Device: "/dev/video0", Label: "HD Webcam"},
		},
		Audio: []AudioSource{
			{Name: "alsa_input.usb-mic.analog-stereo"},
		},
	}
}

func TestResolveSelectionDefaults(t *testing.T) {
	cfg := config.Default()
	sel, err := ResolveSelection(testInventory(), &cfg)
	if err != nil {
		t.Fatalf("ResolveSelection failed: %v", err)
	}
	if sel.Screen.Output != "eDP-1" {
		t.Fatalf("expected primary screen, got %q", sel.Screen.Output)
	}
	if !sel.CameraEnabled || sel.Camera.Device != "/dev/video0" {
		t.Fatalf("expected first camera enabled, got %#v", sel)
	}
	if sel.AudioSource != config.AudioDefault {
		t.Fatalf("expected default audio source, got %q", sel.AudioSource)
	}
}

func TestResolveSelectionCameraNone(t *testing.T) {
	cfg := config.Default()
	cfg.Devices.Camera = config.CameraNone
	sel, err := ResolveSelection(testInventory(), &cfg)
	if err != nil {
		t.Fatalf("ResolveSelection failed: %v", err)
	}
	if sel.CameraEnabled {
		t.Fatal("camera should be disabled by the none sentinel")
	}
}

func TestResolveSelectionExplicitDevices(t *testing.T) {
	cfg := config.Default()
	cfg.Devices.Screen = "HDMI-1"
	cfg.Devices.Audio = "alsa_input.usb-mic.analog-stereo"
	sel, err := ResolveSelection(testInventory(), &cfg)
	if err != nil {
		t.Fatalf("ResolveSelection failed: %v", err)
	}
	if sel.Screen.Output != "HDMI-1" || sel.Screen.Width != 2560 {
		t.Fatalf("unexpected screen: %#v", sel.Screen)
	}
	if sel.AudioSource != "alsa_input.usb-mic.analog-stereo" {
		t.Fatalf("unexpected audio source: %q", sel.AudioSource)
	}
}

func TestResolveSelectionMissingDeviceFails(t *testing.T) {
	cfg := config.Default()
	cfg.Devices.Screen = "DP-9"
	if _, err := ResolveSelection(testInventory(), &cfg); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}

	cfg = config.Default()
	cfg.Devices.Camera = "/dev/video9"
	if _, err := ResolveSelection(testInventory(), &cfg); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound for camera, got %v", err)
	}
}

type failingRunner struct{}

func (failingRunner) Output(context.Context, string, ...string) ([]byte, error) {
	return nil, errors.New("command unavailable")
}

func TestRefreshFallsBackToWholeDisplay(t *testing.T) {
	catalog := NewCatalog(nil)
	catalog.runner = failingRunner{}
	catalog.devGlob = filepath.Join(t.TempDir(), "video*")
	catalog.sysfsDir = t.TempDir()

	t.Setenv("DISPLAY", ":7")
	inv := catalog.Refresh(context.Background())
	if len(inv.Screens) != 1 {
		t.Fatalf("expected whole-display pseudo screen, got %#v", inv.Screens)
	}
	pseudo := inv.Screens[0]
	if pseudo.Output != ":7" || !pseudo.Primary || pseudo.Width != 0 {
		t.Fatalf("unexpected pseudo screen: %#v", pseudo)
	}

	t.Setenv("DISPLAY", "")
	inv = catalog.Refresh(context.Background())
	if len(inv.Screens) != 0 {
		t.Fatalf("expected no screens without DISPLAY, got %#v", inv.Screens)
	}
}

func TestValidateChecksKinds(t *testing.T) {
	catalog := &Catalog{}
	catalog.inv = testInventory()

	if err := catalog.Validate(KindScreen, "eDP-1"); err != nil {
		t.Fatalf("screen validation failed: %v", err)
	}
	if err := catalog.Validate(KindCamera, config.CameraNone); err != nil {
		t.Fatalf("camera none validation failed: %v", err)
	}
	if err := catalog.Validate(KindAudio, config.AudioDefault); err != nil {
		t.Fatalf("audio default validation failed: %v", err)
	}
	if err := catalog.Validate(KindScreen, "DP-9"); !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
	if err := catalog.Validate("keyboard", "any"); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}
