package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"uplink/internal/config"
	"uplink/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.json")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}

	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, "")
	if err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
}

func TestConfigSetShowPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("UPLINK_CONFIG", "")
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.json")
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("save config: %v", err)
	}

	out, _, err := runCLI(t, []string{"config", "set", "storage.bucket", "demo-bucket"}, configPath)
	if err != nil {
		t.Fatalf("config set: %v", err)
	}
	requireContains(t, out, "Set storage.bucket")

	if _, _, err := runCLI(t, []string{"config", "set", "storage.secret_key", "s3cr3t"}, configPath); err != nil {
		t.Fatalf("config set secret: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "set", "notifications.desktop", "false"}, configPath); err != nil {
		t.Fatalf("config set bool: %v", err)
	}

	updated, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if updated.Storage.Bucket != "demo-bucket" {
		t.Fatalf("expected bucket saved, got %q", updated.Storage.Bucket)
	}
	if updated.Notifications.Desktop {
		t.Fatal("expected desktop notifications disabled")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "demo-bucket")
	requireContains(t, out, "[redacted]")
	if strings.Contains(out, "s3cr3t") {
		t.Fatal("expected secret key to be redacted")
	}

	out, _, err = runCLI(t, []string{"config", "path"}, configPath)
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	requireContains(t, out, configPath)

	if _, _, err := runCLI(t, []string{"config", "set", "storage.nope", "x"}, configPath); err == nil {
		t.Fatal("expected unknown key to fail")
	}
	if _, _, err := runCLI(t, []string{"config", "set", "watch.poll_interval_seconds", "often"}, configPath); err == nil {
		t.Fatal("expected non-integer value to fail")
	}
}
