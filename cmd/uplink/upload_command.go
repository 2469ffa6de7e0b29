package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"uplink/internal/config"
	"uplink/internal/ipc"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an existing recording and print its share link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			// The daemon resolves paths against its own working directory.
			if abs, absErr := filepath.Abs(path); absErr == nil {
				path = abs
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Upload(path)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Uploaded %s as %s\n", resp.BaseName, resp.Dest)
				if strings.TrimSpace(resp.URL) != "" {
					fmt.Fprintf(stdout, "Share link: %s\n", resp.URL)
				}
				return nil
			})
		},
	}
}
