package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteDefaultProducesReadableToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".taskcore", "config.toml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty config file")
	}
}

func TestInitializeAppliesDefaultsWithNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := GetString("storage.backend"); got != "sqlite" {
		t.Fatalf("expected default storage.backend sqlite, got %q", got)
	}
	if got := GetBool("routing.watch"); !got {
		t.Fatalf("expected default routing.watch true")
	}
}
