// Package deps reports availability of the external binaries uplink shells
// out to for capture and device enumeration.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency uplink relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the binaries the daemon may invoke. Capture needs
// ffmpeg; the enumeration helpers degrade gracefully when absent.
func Requirements(captureEnabled bool) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     "ffmpeg",
			Description: "records screen, camera, and audio sources",
			Optional:    !captureEnabled,
		},
		{
			Name:        "xrandr",
			Command:     "xrandr",
			Description: "enumerates attached monitors",
			Optional:    true,
		},
		{
			Name:        "pactl",
			Command:     "pactl",
			Description: "enumerates PulseAudio capture sources",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
