package devices

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

func listAudioSources(ctx context.Context, runner commandRunner) ([]AudioSource, error) {
	output, err := runner.Output(ctx, "pactl", "list", "short", "sources")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("pactl: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("pactl: %w", err)
	}
	return parsePactlSources(string(output)), nil
}

// parsePactlSources reads `pactl list short sources` output. Each line is
// tab-separated: index, name, driver, sample spec, state.
func parsePactlSources(output string) []AudioSource {
	var sources []AudioSource
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name := fields[1]
		sources = append(sources, AudioSource{
			Name:    name,
			Monitor: strings.HasSuffix(name, ".monitor"),
		})
	}
	return sources
}
