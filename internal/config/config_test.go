package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"uplink/internal/config"
)

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("UPLINK_CONFIG", "")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Watch.Directory != filepath.Join(tempHome, "Videos") {
		t.Fatalf("unexpected watch directory: %q", cfg.Watch.Directory)
	}
	if cfg.Watch.Extension != ".mp4" {
		t.Fatalf("unexpected extension: %q", cfg.Watch.Extension)
	}
	if cfg.Watch.PollIntervalSeconds != 1 || cfg.Watch.StabilityThreshold != 2 {
		t.Fatalf("unexpected stability tuning: %+v", cfg.Watch)
	}
	if cfg.Capture.Enabled {
		t.Fatal("expected capture disabled by default")
	}
	if cfg.Devices.Camera != config.CameraNone {
		t.Fatalf("expected camera sentinel %q, got %q", config.CameraNone, cfg.Devices.Camera)
	}
	if cfg.Devices.Audio != config.AudioDefault {
		t.Fatalf("expected audio default %q, got %q", config.AudioDefault, cfg.Devices.Audio)
	}
	if cfg.StorageConfigured() {
		t.Fatal("expected storage unconfigured without a bucket")
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadMalformedFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if !errors.Is(err, config.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if cfg == nil {
		t.Fatal("expected defaults alongside ErrMalformed")
	}
	if !exists {
		t.Fatal("expected exists=true for a present file")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Watch.Extension != ".mp4" {
		t.Fatalf("expected default extension after malformed file, got %q", cfg.Watch.Extension)
	}
}

func TestSaveThenLoadRoundTripsSelections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := config.Default()
	cfg.Storage.Bucket = "recordings"
	cfg.Watch.Directory = filepath.Join(t.TempDir(), "captures")
	cfg.Capture.Enabled = true
	cfg.Capture.OutputDir = filepath.Join(cfg.Watch.Directory, "sources-out")
	cfg.Devices.Screen = "HDMI-1"
	cfg.Devices.Camera = "/dev/video2"
	cfg.Devices.Audio = "alsa_input.usb-mic"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected saved file to exist")
	}
	if loaded.Storage.Bucket != "recordings" {
		t.Fatalf("bucket did not round-trip: %q", loaded.Storage.Bucket)
	}
	if loaded.Watch.Directory != cfg.Watch.Directory {
		t.Fatalf("watch directory did not round-trip: %q", loaded.Watch.Directory)
	}
	if !loaded.Capture.Enabled {
		t.Fatal("capture flag did not round-trip")
	}
	if loaded.Devices.Screen != "HDMI-1" || loaded.Devices.Camera != "/dev/video2" || loaded.Devices.Audio != "alsa_input.usb-mic" {
		t.Fatalf("device selections did not round-trip: %+v", loaded.Devices)
	}
}

func TestNormalizeRepairsExtensionAndSentinels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"watch": {"extension": "MKV"}, "devices": {"camera": "", "audio": ""}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Watch.Extension != ".mkv" {
		t.Fatalf("expected normalized extension .mkv, got %q", cfg.Watch.Extension)
	}
	if cfg.Devices.Camera != config.CameraNone {
		t.Fatalf("expected camera sentinel, got %q", cfg.Devices.Camera)
	}
	if cfg.Devices.Audio != config.AudioDefault {
		t.Fatalf("expected default audio source, got %q", cfg.Devices.Audio)
	}
}

func TestValidateRejectsCaptureDirEqualToWatchDir(t *testing.T) {
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Watch.Directory = dir
	cfg.Capture.Enabled = true
	cfg.Capture.OutputDir = dir

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error for capture output inside watch directory")
	}
}

func TestStorageCredentialsFallBackToEnv(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"storage": {"bucket": "recordings"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.AccessKey != "AKIDEXAMPLE" || cfg.Storage.SecretKey != "secret" {
		t.Fatalf("expected credentials from environment, got %+v", cfg.Storage)
	}
}

func TestCreateSampleWritesParseableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Watch.Extension != ".mp4" {
		t.Fatalf("unexpected sample extension: %q", cfg.Watch.Extension)
	}
}
