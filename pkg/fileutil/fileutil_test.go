package fileutil

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExistsAndIsNonEmpty(t *testing.T) {
	dir := t.TempDir()
	footer := filepath.Join(dir, "footer.bin")
	tik := filepath.Join(dir, "tik.bin")
	touch(t, footer, nil)
	touch(t, tik, make([]byte, 0x2A4))

	tests := []struct {
		path             string
		exists, nonEmpty bool
	}{
		{filepath.Join(dir, "tmd.bin"), false, false},
		{footer, true, false},
		{tik, true, true},
	}
	for _, tt := range tests {
		if got := Exists(tt.path); got != tt.exists {
			t.Errorf("Exists(%s) = %v", filepath.Base(tt.path), got)
		}
		if got := IsNonEmpty(tt.path); got != tt.nonEmpty {
			t.Errorf("IsNonEmpty(%s) = %v", filepath.Base(tt.path), got)
		}
	}
}

func TestWriteFileReplacesSection(t *testing.T) {
	tmpDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "sections", "tik.bin")
	touch(t, out, []byte("old ticket"))

	tik := bytes.Repeat([]byte{0x00, 0x01, 0x00, 0x01}, 0xA9)
	if err := WriteFile(tmpDir, out, tik); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, tik) {
		t.Error("ticket not replaced")
	}
	if Exists(filepath.Join(tmpDir, "tik.bin"+TmpSuffix)) {
		t.Error("tmp file left in tmp dir")
	}
}

func TestWriteTmpThenMoveFailureKeepsOldFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "title.wad")
	touch(t, out, []byte("previous package"))

	errShort := errors.New("short write")
	err := WriteTmpThenMove("", out, func(tmpPath string) error {
		if filepath.Dir(tmpPath) != dir {
			t.Errorf("tmp path %s not next to output", tmpPath)
		}
		if err := os.WriteFile(tmpPath, []byte("half a pack"), 0o644); err != nil {
			return err
		}
		return errShort
	})
	if !errors.Is(err, errShort) {
		t.Fatalf("WriteTmpThenMove = %v, want %v", err, errShort)
	}

	got, _ := os.ReadFile(out)
	if string(got) != "previous package" {
		t.Errorf("output = %q after a failed write", got)
	}
	if Exists(out + TmpSuffix) {
		t.Error("partial package left behind")
	}
}

func TestRemoveTmpFiles(t *testing.T) {
	dir := t.TempDir()
	stale := []string{
		filepath.Join(dir, "tik.bin"+TmpSuffix),
		filepath.Join(dir, "data.bin"+TmpSuffix),
	}
	keep := []string{
		filepath.Join(dir, "notes.tmp"),
		filepath.Join(dir, "tik.bin"),
		filepath.Join(dir, "project", "tik.bin"+TmpSuffix),
	}
	for _, p := range append(append([]string{}, stale...), keep...) {
		touch(t, p, []byte("x"))
	}

	n, err := RemoveTmpFiles(dir, "cert.bin", "tik.bin", "tmd.bin", "data.bin", "footer.bin")
	if err != nil {
		t.Fatalf("RemoveTmpFiles failed: %v", err)
	}
	if n != len(stale) {
		t.Errorf("removed %d files, want %d", n, len(stale))
	}
	for _, p := range stale {
		if Exists(p) {
			t.Errorf("%s not removed", p)
		}
	}
	for _, p := range keep {
		if !Exists(p) {
			t.Errorf("%s removed", p)
		}
	}

	if n, err := RemoveTmpFiles(filepath.Join(dir, "missing"), "tik.bin"); n != 0 || err != nil {
		t.Errorf("RemoveTmpFiles(missing dir) = %d, %v", n, err)
	}
	if _, err := RemoveTmpFiles(dir, filepath.Join("project", "tik.bin")); err == nil {
		t.Error("RemoveTmpFiles accepted a nested name")
	}
	if !Exists(filepath.Join(dir, "project", "tik.bin"+TmpSuffix)) {
		t.Error("nested tmp file removed")
	}
}
