package capture

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"uplink/internal/fileutil"
)

// ErrMalformedPresets indicates the preset file exists but cannot be parsed.
// Callers get the defaults alongside the error and should warn and continue.
var ErrMalformedPresets = errors.New("malformed capture presets")

// Presets holds the ffmpeg encoding knobs per source kind, loaded from the
// capture preset TOML file.
type Presets struct {
	Screen ScreenPreset `toml:"screen"`
	Camera CameraPreset `toml:"camera"`
	Audio  AudioPreset  `toml:"audio"`
}

// ScreenPreset tunes the x11grab encoder.
type ScreenPreset struct {
	Framerate int    `toml:"framerate"`
	Codec     string `toml:"codec"`
	Preset    string `toml:"preset"`
	CRF       int    `toml:"crf"`
}

// CameraPreset tunes the v4l2 encoder.
type CameraPreset struct {
	Framerate int    `toml:"framerate"`
	VideoSize string `toml:"video_size"`
	Codec     string `toml:"codec"`
	Preset    string `toml:"preset"`
}

// AudioPreset tunes the pulse recorder.
type AudioPreset struct {
	Codec string `toml:"codec"`
}

// DefaultPresets returns encoding settings that favor low capture overhead;
// raw sources are meant to be re-encoded later if they are kept at all.
func DefaultPresets() Presets {
	return Presets{
		Screen: ScreenPreset{
			Framerate: 30,
			Codec:     "libx264",
			Preset:    "ultrafast",
			CRF:       23,
		},
		Camera: CameraPreset{
			Framerate: 30,
			VideoSize: "1280x720",
			Codec:     "libx264",
			Preset:    "ultrafast",
		},
		Audio: AudioPreset{
			Codec: "pcm_s16le",
		},
	}
}

// LoadPresets reads the preset file at path. A missing file yields the
// defaults with no error; a malformed file yields the defaults wrapped with
// ErrMalformedPresets so sessions still start.
func LoadPresets(path string) (Presets, error) {
	presets := DefaultPresets()
	if path == "" {
		return presets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return presets, nil
		}
		return presets, fmt.Errorf("read capture presets: %w", err)
	}

	loaded := DefaultPresets()
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return presets, fmt.Errorf("%w: %s: %v", ErrMalformedPresets, path, err)
	}
	normalizePresets(&loaded)
	return loaded, nil
}

// SavePresets writes the presets to path atomically.
func SavePresets(path string, presets Presets) error {
	data, err := toml.Marshal(presets)
	if err != nil {
		return fmt.Errorf("encode capture presets: %w", err)
	}
	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write capture presets: %w", err)
	}
	return nil
}

// normalizePresets backfills zero values with defaults so a sparse preset
// file never produces broken ffmpeg arguments.
func normalizePresets(p *Presets) {
	defaults := DefaultPresets()
	if p.Screen.Framerate <= 0 {
		p.Screen.Framerate = defaults.Screen.Framerate
	}
	if p.Screen.Codec == "" {
		p.Screen.Codec = defaults.Screen.Codec
	}
	if p.Screen.Preset == "" {
		p.Screen.Preset = defaults.Screen.Preset
	}
	if p.Screen.CRF <= 0 {
		p.Screen.CRF = defaults.Screen.CRF
	}
	if p.Camera.Framerate <= 0 {
		p.Camera.Framerate = defaults.Camera.Framerate
	}
	if p.Camera.VideoSize == "" {
		p.Camera.VideoSize = defaults.Camera.VideoSize
	}
	if p.Camera.Codec == "" {
		p.Camera.Codec = defaults.Camera.Codec
	}
	if p.Camera.Preset == "" {
		p.Camera.Preset = defaults.Camera.Preset
	}
	if p.Audio.Codec == "" {
		p.Audio.Codec = defaults.Audio.Codec
	}
}
