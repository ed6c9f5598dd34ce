package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveDataDir_Default(t *testing.T) {
	t.Setenv("AMDMON_DATA_DIR", "")
	os.Unsetenv("AMDMON_DATA_DIR")

	dir := ResolveDataDir("/var/lib/amdmon")
	if dir != "/var/lib/amdmon" {
		t.Errorf("expected default dir, got %s", dir)
	}
}

func TestResolveDataDir_EnvOverride(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("AMDMON_DATA_DIR", tmp)

	dir := ResolveDataDir("/var/lib/amdmon")
	if dir != tmp {
		t.Errorf("expected %s, got %s", tmp, dir)
	}
}

func TestEnsureDataDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "data")

	if err := EnsureDataDir(target); err != nil {
		t.Fatalf("EnsureDataDir failed: %v", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected a directory")
	}
}

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	content := []byte("session report\n")

	if err := AtomicWriteFile(path, content, 0o644, nil); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: %q", got)
	}

	// No temp file should remain.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("expected temp file to be gone")
	}
}
