package devices

import (
	"fmt"
	"time"
)

// Screen describes one connected xrandr output.
type Screen struct {
	Output  string
	Width   int
	Height  int
	OffsetX int
	OffsetY int
	Primary bool
}

// Size renders the screen dimensions as WIDTHxHEIGHT for ffmpeg.
func (s Screen) Size() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Origin renders the capture origin as :0.0+X,Y for x11grab input.
func (s Screen) Origin(display string) string {
	if display == "" {
		display = ":0.0"
	}
	return fmt.Sprintf("%s+%d,%d", display, s.OffsetX, s.OffsetY)
}

// Camera describes one V4L2 capture node.
type Camera struct {
	Device string
	Label  string
}

// AudioSource describes one PulseAudio source.
type AudioSource struct {
	Name    string
	Monitor bool
}

// Inventory is a point-in-time snapshot of available capture devices.
type Inventory struct {
	Screens     []Screen
	Cameras     []Camera
	Audio       []AudioSource
	RefreshedAt time.Time
}

// PrimaryScreen returns the primary output, or the first one when xrandr
// reports no primary flag.
func (inv Inventory) PrimaryScreen() (Screen, bool) {
	for _, screen := range inv.Screens {
		if screen.Primary {
			return screen, true
		}
	}
	if len(inv.Screens) > 0 {
		return inv.Screens[0], true
	}
	return Screen{}, false
}

// FindScreen looks up a screen by output name.
func (inv Inventory) FindScreen(output string) (Screen, bool) {
	for _, screen := range inv.Screens {
		if screen.Output == output {
			return screen, true
		}
	}
	return Screen{}, false
}

// FindCamera looks up a camera by device path.
func (inv Inventory) FindCamera(device string) (Camera, bool) {
	for _, camera := range inv.Cameras {
		if camera.Device == device {
			return camera, true
		}
	}
	return Camera{}, false
}

// FindAudio looks up an audio source by name.
func (inv Inventory) FindAudio(name string) (AudioSource, bool) {
	for _, source := range inv.Audio {
		if source.Name == name {
			return source, true
		}
	}
	return AudioSource{}, false
}
