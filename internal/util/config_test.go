package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gem.toml")
	content := "log_level = \"debug\"\nlog_file = \"/tmp/gem.log\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	config := Configuration{LogLevel: "error"}
	if err := LoadFile(path, &config); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if config.LogLevel != "debug" {
		t.Errorf("LogLevel wrong. want=%q, got=%q", "debug", config.LogLevel)
	}
	if config.LogFile != "/tmp/gem.log" {
		t.Errorf("LogFile wrong. want=%q, got=%q", "/tmp/gem.log", config.LogFile)
	}
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	config := Configuration{LogLevel: "error"}
	if err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"), &config); err != nil {
		t.Fatalf("missing file should be ignored, got %v", err)
	}
	if config.LogLevel != "error" {
		t.Errorf("config should be untouched, got %q", config.LogLevel)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gem.toml")
	if err := os.WriteFile(path, []byte("log_level = [broken"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	config := Configuration{}
	if err := LoadFile(path, &config); err == nil {
		t.Fatalf("expected a decode error")
	}
}
