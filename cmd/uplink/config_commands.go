package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"uplink/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigPathCommand(ctx))
	configCmd.AddCommand(newConfigSetCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set storage.bucket (for example with `uplink config set storage.bucket my-bucket`) before sharing can work.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			redacted := *cfg
			if redacted.Storage.AccessKey != "" {
				redacted.Storage.AccessKey = "[redacted]"
			}
			if redacted.Storage.SecretKey != "" {
				redacted.Storage.SecretKey = "[redacted]"
			}
			return writeJSON(cmd, redacted)
		},
	}
}

func newConfigPathCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the resolved configuration file path",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagValue string
			if ctx.configFlag != nil {
				flagValue = strings.TrimSpace(*ctx.configFlag)
			}
			_, path, exists, err := config.Load(flagValue)
			if err != nil {
				return fmt.Errorf("resolve config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, path)
			if !exists {
				fmt.Fprintln(out, "File does not exist yet; defaults are in effect (run `uplink config init`)")
			}
			return nil
		},
	}
}

func newConfigSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Update a configuration value (for example storage.bucket)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			key := strings.ToLower(strings.TrimSpace(args[0]))
			if err := applyConfigValue(cfg, key, args[1]); err != nil {
				return err
			}
			path := ctx.resolvedConfigPath()
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Set %s, saved %s\n", key, path)
			fmt.Fprintln(out, "Run `uplink restart` for the daemon to pick up the change")
			return nil
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var flagValue string
			if ctx.configFlag != nil {
				flagValue = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, path, exists, err := config.Load(flagValue)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// applyConfigValue mutates a single dotted key. Paths are stored as given and
// expanded at load time, so tilde values survive the round trip.
func applyConfigValue(cfg *config.Config, key, value string) error {
	switch key {
	case "paths.log_dir":
		cfg.Paths.LogDir = value
	case "paths.journal_db":
		cfg.Paths.JournalDB = value
	case "watch.directory":
		cfg.Watch.Directory = value
	case "watch.extension":
		cfg.Watch.Extension = value
	case "watch.poll_interval_seconds":
		return setIntValue(&cfg.Watch.PollIntervalSeconds, key, value)
	case "watch.stability_threshold":
		return setIntValue(&cfg.Watch.StabilityThreshold, key, value)
	case "watch.rescan_interval_seconds":
		return setIntValue(&cfg.Watch.RescanIntervalSeconds, key, value)
	case "capture.enabled":
		return setBoolValue(&cfg.Capture.Enabled, key, value)
	case "capture.output_dir":
		cfg.Capture.OutputDir = value
	case "capture.preset_path":
		cfg.Capture.PresetPath = value
	case "capture.grace_seconds":
		return setIntValue(&cfg.Capture.GraceSeconds, key, value)
	case "storage.bucket":
		cfg.Storage.Bucket = value
	case "storage.region":
		cfg.Storage.Region = value
	case "storage.endpoint":
		cfg.Storage.Endpoint = value
	case "storage.prefix":
		cfg.Storage.Prefix = value
	case "storage.public_base_url":
		cfg.Storage.PublicBaseURL = value
	case "storage.access_key":
		cfg.Storage.AccessKey = value
	case "storage.secret_key":
		cfg.Storage.SecretKey = value
	case "storage.copy_link":
		return setBoolValue(&cfg.Storage.CopyLink, key, value)
	case "devices.screen":
		cfg.Devices.Screen = value
	case "devices.camera":
		cfg.Devices.Camera = value
	case "devices.audio":
		cfg.Devices.Audio = value
	case "notifications.desktop":
		return setBoolValue(&cfg.Notifications.Desktop, key, value)
	case "notifications.ntfy_topic":
		cfg.Notifications.NtfyTopic = value
	case "notifications.request_timeout":
		return setIntValue(&cfg.Notifications.RequestTimeout, key, value)
	case "notifications.detected":
		return setBoolValue(&cfg.Notifications.Detected, key, value)
	case "notifications.share_ready":
		return setBoolValue(&cfg.Notifications.ShareReady, key, value)
	case "notifications.errors":
		return setBoolValue(&cfg.Notifications.Errors, key, value)
	case "logging.format":
		cfg.Logging.Format = value
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.retention_days":
		return setIntValue(&cfg.Logging.RetentionDays, key, value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func setBoolValue(target *bool, key, value string) error {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s expects true or false, got %q", key, value)
	}
	*target = parsed
	return nil
}

func setIntValue(target *int, key, value string) error {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s expects an integer, got %q", key, value)
	}
	*target = parsed
	return nil
}
