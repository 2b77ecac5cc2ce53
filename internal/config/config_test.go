package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Address != DefaultAddress {
		t.Errorf("address = %q, want %q", cfg.Server.Address, DefaultAddress)
	}
	if cfg.Export.Output != DefaultOutput {
		t.Errorf("output = %q, want %q", cfg.Export.Output, DefaultOutput)
	}
}

func TestLoadMergesWithDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
name: demo
server:
  address: ":3000"
state:
  batch_delay: 16ms
export:
  routes: ["/", "/about"]
`
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "demo" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Server.Address != ":3000" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if cfg.State.BatchDelay.Std() != 16*time.Millisecond {
		t.Errorf("batch delay = %v", cfg.State.BatchDelay)
	}
	if len(cfg.Export.Routes) != 2 || cfg.Export.Routes[1] != "/about" {
		t.Errorf("routes = %v", cfg.Export.Routes)
	}
	// Unset sections keep defaults.
	if cfg.Render.MaxDepth != 100 {
		t.Errorf("max depth = %d, want default 100", cfg.Render.MaxDepth)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("server: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Export.S3Bucket = "my-bucket"
	if err := cfg.Validate(); err == nil {
		t.Error("S3 bucket without region should fail validation")
	}
	cfg.Export.S3Region = "us-east-1"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Name = "roundtrip"
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "roundtrip" {
		t.Errorf("name = %q", loaded.Name)
	}
}
