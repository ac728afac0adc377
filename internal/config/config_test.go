package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	t.Setenv("TASKO_HOME", t.TempDir())

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TASKO_HOME", t.TempDir())
	t.Setenv("TASKO_SERVER_URL", "https://tasks.example.com")
	t.Setenv("TASKO_SYNC_DEBOUNCE", "750ms")
	t.Setenv("TASKO_MAX_ATTEMPTS", "3")

	cfg := DefaultConfig()
	if cfg.ServerURL != "https://tasks.example.com" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.SyncDebounce != 750*time.Millisecond {
		t.Errorf("SyncDebounce = %v", cfg.SyncDebounce)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d", cfg.MaxAttempts)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TASKO_HOME", home)

	cfg := DefaultConfig()
	cfg.ServerURL = "http://10.0.0.5:8080"
	cfg.LogLevel = "DEBUG"
	cfg.ConfirmDelete = false
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(home, "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
