package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uplink/internal/config"
	"uplink/internal/ipc"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Inspect and select capture devices",
	}

	devicesCmd.AddCommand(newDevicesListCommand(ctx))
	devicesCmd.AddCommand(newDevicesSelectCommand(ctx))

	return devicesCmd
}

func newDevicesListCommand(ctx *commandContext) *cobra.Command {
	var refresh bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List screens, cameras, and audio sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Devices(refresh)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Screens", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if len(resp.Screens) == 0 {
					fmt.Fprintln(stdout, "No screens detected")
				} else {
					rows := make([][]string, 0, len(resp.Screens))
					for _, screen := range resp.Screens {
						rows = append(rows, []string{
							screen.Output,
							screenResolution(screen),
							yesNo(screen.Primary),
							selectionMark(screen.Selected),
						})
					}
					fmt.Fprintln(stdout, renderTable([]string{"Output", "Resolution", "Primary", "Selected"}, rows, nil))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Cameras", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if len(resp.Cameras) == 0 {
					fmt.Fprintln(stdout, "No cameras detected")
				} else {
					rows := make([][]string, 0, len(resp.Cameras))
					for _, camera := range resp.Cameras {
						rows = append(rows, []string{
							camera.Device,
							camera.Label,
							selectionMark(camera.Selected),
						})
					}
					fmt.Fprintln(stdout, renderTable([]string{"Device", "Label", "Selected"}, rows, nil))
					fmt.Fprintln(stdout, `Use "uplink devices select camera none" to record without a camera`)
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Audio Sources", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if len(resp.Audio) == 0 {
					fmt.Fprintln(stdout, "No audio sources detected")
				} else {
					rows := make([][]string, 0, len(resp.Audio))
					for _, source := range resp.Audio {
						rows = append(rows, []string{
							source.Name,
							yesNo(source.Monitor),
							selectionMark(source.Selected),
						})
					}
					fmt.Fprintln(stdout, renderTable([]string{"Source", "Monitor", "Selected"}, rows, nil))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Rescan devices before listing")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit device inventory as JSON")
	return cmd
}

func newDevicesSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select <screen|camera|audio> <identifier>",
		Short: `Select a capture device (camera accepts "none")`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SelectDevice(args[0], args[1])
				if err != nil {
					return err
				}
				if resp.Kind == "camera" && resp.Value == config.CameraNone {
					fmt.Fprintln(cmd.OutOrStdout(), "Camera capture disabled")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Selected %s: %s\n", resp.Kind, resp.Value)
				return nil
			})
		},
	}
}

func selectionMark(selected bool) string {
	if selected {
		return "*"
	}
	return ""
}

// screenResolution renders a screen's size, or "full screen" for the
// whole-display pseudo device the catalog synthesizes without xrandr.
func screenResolution(screen ipc.ScreenInfo) string {
	if screen.Width <= 0 || screen.Height <= 0 {
		return "full screen"
	}
	return fmt.Sprintf("%dx%d", screen.Width, screen.Height)
}
