package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStatDir(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "onnx")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "model.onnx"), []byte("abc"), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := StatDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got.Files != 2 || got.Bytes != 8 {
		t.Errorf("StatDir = %+v, want 2 files / 8 bytes", got)
	}

	// Missing path is not an error
	got, err = StatDir(filepath.Join(dir, "nonexistent"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Files != 0 || got.Bytes != 0 {
		t.Errorf("missing dir: got %+v", got)
	}

	// Empty path is skipped
	got, err = StatDir("")
	if err != nil || got.Files != 0 {
		t.Errorf("empty path: got %+v, %v", got, err)
	}
}
