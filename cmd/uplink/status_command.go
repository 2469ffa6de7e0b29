package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"uplink/internal/config"
	"uplink/internal/daemonctl"
	"uplink/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, watcher, and journal status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			snap, err := daemonctl.StatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, snap)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Uplink Status", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, daemonStatusLine(snap, colorize))
			fmt.Fprintln(stdout, watcherStatusLine(snap, colorize))
			fmt.Fprintln(stdout, storageStatusLine(cfg, colorize))
			fmt.Fprintln(stdout, captureStatusLine(cfg, colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range dependencyLines(snap.Dependencies, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Journal", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildJournalRows(snap.Journal)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Journal is empty")
			} else {
				fmt.Fprintln(stdout, renderTable([]string{"Outcome", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Paths", colorize) {
				fmt.Fprintln(stdout, line)
			}
			if cfg != nil {
				fmt.Fprintln(stdout, renderStatusLine("Watch directory", statusInfo, cfg.Watch.Directory, colorize))
			}
			fmt.Fprintln(stdout, renderStatusLine("Journal", statusInfo, snap.JournalPath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Socket", statusInfo, snap.SocketPath, colorize))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit status as JSON")
	return cmd
}

func daemonStatusLine(snap *ipc.StatusResponse, colorize bool) string {
	if snap.PID > 0 {
		return renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", snap.PID), colorize)
	}
	return renderStatusLine("Daemon", statusError, "Not running", colorize)
}

func watcherStatusLine(snap *ipc.StatusResponse, colorize bool) string {
	if !snap.Watching {
		return renderStatusLine("Watcher", statusWarn, "Stopped", colorize)
	}
	message := "Watching for recordings"
	switch snap.Phase {
	case "detected", "polling":
		message = fmt.Sprintf("Recording in progress: %s", snap.ActiveBase)
	case "finalizing":
		message = fmt.Sprintf("Finalizing: %s", snap.ActiveBase)
	}
	if snap.Uploading {
		message += " (upload in flight)"
	}
	return renderStatusLine("Watcher", statusOK, message, colorize)
}

func storageStatusLine(cfg *config.Config, colorize bool) string {
	if cfg == nil {
		return renderStatusLine("Storage", statusInfo, "Unknown", colorize)
	}
	if !cfg.StorageConfigured() {
		return renderStatusLine("Storage", statusWarn, "Not configured (set storage.bucket with `uplink config set`)", colorize)
	}
	dest := cfg.Storage.Bucket
	if prefix := strings.Trim(strings.TrimSpace(cfg.Storage.Prefix), "/"); prefix != "" {
		dest += "/" + prefix
	}
	return renderStatusLine("Storage", statusOK, dest, colorize)
}

func captureStatusLine(cfg *config.Config, colorize bool) string {
	if cfg == nil || !cfg.Capture.Enabled {
		return renderStatusLine("Capture", statusInfo, "Disabled", colorize)
	}
	return renderStatusLine("Capture", statusOK, fmt.Sprintf("Enabled (output: %s)", cfg.Capture.OutputDir), colorize)
}

func dependencyLines(deps []ipc.DependencyStatus, colorize bool) []string {
	lines := make([]string, 0, len(deps)+1)
	missing := make([]string, 0)
	for _, dep := range deps {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		if !dep.Optional {
			missing = append(missing, dep.Name)
		}
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func buildJournalRows(summary ipc.JournalSummary) [][]string {
	if summary.Total == 0 {
		return nil
	}
	return [][]string{
		{"In flight", fmt.Sprintf("%d", summary.InFlight)},
		{"Shared", fmt.Sprintf("%d", summary.Shared)},
		{"Failed", fmt.Sprintf("%d", summary.Failed)},
		{"Aborted", fmt.Sprintf("%d", summary.Aborted)},
		{"Total", fmt.Sprintf("%d", summary.Total)},
	}
}
