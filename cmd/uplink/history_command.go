package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"uplink/internal/ipc"
	"uplink/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled recordings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(client *ipc.Client, store *journal.Store) error {
				var entries []ipc.HistoryEntry
				if client != nil {
					resp, err := client.History(limit)
					if err != nil {
						return err
					}
					entries = resp.Entries
				} else {
					recs, err := store.Recent(cmd.Context(), limit)
					if err != nil {
						return err
					}
					entries = make([]ipc.HistoryEntry, 0, len(recs))
					for _, rec := range recs {
						if rec == nil {
							continue
						}
						entries = append(entries, ipc.NewHistoryEntry(rec))
					}
				}

				if jsonOut {
					return writeJSON(cmd, entries)
				}

				rows := buildHistoryRows(entries)
				if len(rows) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Journal is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Recording", "Status", "Share Link", "Size", "Detected"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum entries to show (0 for all)")
	historyCmd.Flags().BoolVar(&jsonOut, "json", false, "Emit history as JSON")
	historyCmd.AddCommand(newHistoryClearCommand(ctx))

	return historyCmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJournal(func(client *ipc.Client, store *journal.Store) error {
				var removed int64
				if client != nil {
					resp, err := client.HistoryClear()
					if err != nil {
						return err
					}
					removed = resp.Removed
				} else {
					var err error
					removed, err = store.Clear(cmd.Context())
					if err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d journal entries\n", removed)
				return nil
			})
		},
	}
}

func buildHistoryRows(entries []ipc.HistoryEntry) [][]string {
	if len(entries) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		link := strings.TrimSpace(entry.ShareURL)
		if link == "" {
			link = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", entry.ID),
			entry.BaseName,
			formatStatusLabel(entry.Status),
			link,
			formatSize(entry.SizeBytes),
			entry.DetectedAt.UTC().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
