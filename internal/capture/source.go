package capture

import (
	"os"
	"strconv"
	"syscall"

	"uplink/internal/devices"
)

// Kind tags one capturable source variant.
type Kind string

const (
	KindScreen Kind = "screen"
	KindCamera Kind = "camera"
	KindAudio  Kind = "audio"
)

// Source is one capturable input: a screen region, a camera node, or an
// audio source. All three share the same start/stop surface so the
// supervisor never branches on kind.
type Source struct {
	Kind    Kind
	Screen  devices.Screen
	Display string
	Device  string
}

// BuildSources expands a device selection into the sources a session should
// record. Screen and audio are always present; the camera only when the
// selection enables one.
func BuildSources(sel devices.Selection, display string) []Source {
	sources := []Source{
		{Kind: KindScreen, Screen: sel.Screen, Display: display},
		{Kind: KindAudio, Device: sel.AudioSource},
	}
	if sel.CameraEnabled {
		sources = append(sources, Source{Kind: KindCamera, Device: sel.Camera.Device})
	}
	return sources
}

// OutputName returns the file name the source records into inside the
// session's sources folder.
func (s Source) OutputName() string {
	switch s.Kind {
	case KindCamera:
		return "webcam.mkv"
	case KindAudio:
		return "audio.wav"
	default:
		return "screen.mkv"
	}
}

// StopSignal returns the graceful termination signal for this source. The
// screen encoder gets the stronger TERM; camera and audio settle for INT.
func (s Source) StopSignal() os.Signal {
	if s.Kind == KindScreen {
		return syscall.SIGTERM
	}
	return os.Interrupt
}

// Command assembles the ffmpeg invocation recording this source to
// outputPath.
func (s Source) Command(binary string, presets Presets, outputPath string) (string, []string) {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
	}

	switch s.Kind {
	case KindCamera:
		args = append(args,
			"-f", "v4l2",
			"-framerate", strconv.Itoa(presets.Camera.Framerate),
			"-video_size", presets.Camera.VideoSize,
			"-i", s.Device,
			"-c:v", presets.Camera.Codec,
			"-preset", presets.Camera.Preset,
		)
	case KindAudio:
		args = append(args,
			"-f", "pulse",
			"-i", s.Device,
			"-c:a", presets.Audio.Codec,
		)
	default:
		args = append(args,
			"-f", "x11grab",
			"-framerate", strconv.Itoa(presets.Screen.Framerate),
		)
		// Zero geometry means a whole-display pseudo screen; without an
		// explicit size x11grab records the full root window.
		if s.Screen.Width > 0 && s.Screen.Height > 0 {
			args = append(args, "-video_size", s.Screen.Size())
		}
		args = append(args,
			"-i", s.Screen.Origin(s.Display),
			"-c:v", presets.Screen.Codec,
			"-preset", presets.Screen.Preset,
			"-crf", strconv.Itoa(presets.Screen.CRF),
		)
	}

	args = append(args, outputPath)
	return binary, args
}
