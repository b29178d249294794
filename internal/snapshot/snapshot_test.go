package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCaptureRecordsRegularFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "world!")

	s := Capture(dir, 2)

	if len(s.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(s.Files))
	}
	abs, _ := filepath.Abs(filepath.Join(dir, "a.txt"))
	entry, ok := s.Files[abs]
	if !ok {
		t.Fatalf("a.txt not captured; files: %v", s.Files)
	}
	if entry.Size != 5 {
		t.Errorf("a.txt size = %d, want 5", entry.Size)
	}
	if entry.ModTime.IsZero() {
		t.Error("mod time not captured")
	}
	if s.TakenAt.IsZero() {
		t.Error("taken-at not set")
	}
}

func TestCaptureRespectsDepthBound(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.txt"), "x")
	writeFile(t, filepath.Join(dir, "one", "mid.txt"), "x")
	writeFile(t, filepath.Join(dir, "one", "two", "deep.txt"), "x")

	tests := []struct {
		depth int
		want  int
	}{
		{0, 1}, // top.txt only
		{1, 2}, // + one/mid.txt
		{2, 3}, // + one/two/deep.txt
		{5, 3},
	}
	for _, tt := range tests {
		s := Capture(dir, tt.depth)
		if len(s.Files) != tt.want {
			t.Errorf("depth %d: got %d files, want %d", tt.depth, len(s.Files), tt.want)
		}
	}
}

func TestCaptureNegativeDepthTreatedAsZero(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.txt"), "x")
	writeFile(t, filepath.Join(dir, "sub", "nested.txt"), "x")

	s := Capture(dir, -3)
	if len(s.Files) != 1 {
		t.Errorf("got %d files, want 1", len(s.Files))
	}
}

func TestCaptureMissingRootDegradesToEmpty(t *testing.T) {
	s := Capture(filepath.Join(t.TempDir(), "does-not-exist"), 2)
	if s == nil {
		t.Fatal("capture returned nil")
	}
	if len(s.Files) != 0 {
		t.Errorf("expected empty file set, got %d entries", len(s.Files))
	}
}

func TestCaptureSkipsIrregularFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "regular.txt"), "x")
	if err := os.Symlink(filepath.Join(dir, "regular.txt"), filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	s := Capture(dir, 1)
	if len(s.Files) != 1 {
		t.Errorf("got %d files, want 1 (symlink should be skipped)", len(s.Files))
	}
}

func TestCaptureTimestampsAdvance(t *testing.T) {
	dir := t.TempDir()
	before := Capture(dir, 1)
	time.Sleep(2 * time.Millisecond)
	after := Capture(dir, 1)

	if !after.TakenAt.After(before.TakenAt) {
		t.Errorf("after.TakenAt (%v) not after before.TakenAt (%v)", after.TakenAt, before.TakenAt)
	}
}
