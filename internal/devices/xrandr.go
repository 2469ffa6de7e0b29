package devices

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

func listScreens(ctx context.Context, runner commandRunner) ([]Screen, error) {
	output, err := runner.Output(ctx, "xrandr", "--query")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("xrandr: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("xrandr: %w", err)
	}
	return parseXrandrOutput(string(output)), nil
}

// parseXrandrOutput extracts connected outputs with active geometry from
// `xrandr --query` output. Disconnected outputs and connected-but-inactive
// outputs (no geometry token) are skipped.
func parseXrandrOutput(output string) []Screen {
	var screens []Screen
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "Screen ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[1] != "connected" {
			continue
		}

		primary := false
		geometryField := fields[2]
		if geometryField == "primary" {
			primary = true
			if len(fields) < 4 {
				continue
			}
			geometryField = fields[3]
		}

		screen, ok := parseGeometry(geometryField)
		if !ok {
			continue
		}
		screen.Output = fields[0]
		screen.Primary = primary
		screens = append(screens, screen)
	}
	return screens
}

// parseGeometry decodes an xrandr geometry token like 1920x1080+1920+0.
func parseGeometry(token string) (Screen, bool) {
	parts := strings.Split(token, "+")
	if len(parts) != 3 {
		return Screen{}, false
	}
	width, height, ok := splitResolution(parts[0])
	if !ok {
		return Screen{}, false
	}
	offsetX, err := strconv.Atoi(parts[1])
	if err != nil {
		return Screen{}, false
	}
	offsetY, err := strconv.Atoi(parts[2])
	if err != nil {
		return Screen{}, false
	}
	return Screen{Width: width, Height: height, OffsetX: offsetX, OffsetY: offsetY}, true
}

func splitResolution(token string) (int, int, bool) {
	widthStr, heightStr, found := strings.Cut(token, "x")
	if !found {
		return 0, 0, false
	}
	width, err := strconv.Atoi(widthStr)
	if err != nil {
		return 0, 0, false
	}
	height, err := strconv.Atoi(heightStr)
	if err != nil {
		return 0, 0, false
	}
	return width, height, true
}
