// Package devices enumerates the capture hardware uplink can record from:
// X11 screens via xrandr, V4L2 cameras via /dev/video* and sysfs, and
// PulseAudio sources via pactl.
//
// The Catalog caches one inventory snapshot and refreshes it on demand or when
// the hotplug monitor sees a video4linux/sound uevent. Selection helpers
// resolve the configured device names against the current inventory, falling
// back to the primary screen, the first camera, and the default audio source
// when nothing is pinned in the config.
package devices
