package cliutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestExpandPositionals(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.csv"))
	touch(t, filepath.Join(dir, "b.csv"))
	got, err := ExpandPositionals([]string{filepath.Join(dir, "*.csv"), "-"})
	if err != nil || len(got) != 3 || got[2] != "-" {
		t.Fatalf("expand: err=%v got=%v", err, got)
	}
	if _, err := ExpandPositionals([]string{filepath.Join(dir, "*.xlsx")}); err == nil {
		t.Fatalf("unmatched glob should fail")
	}
}

func TestExpandInputsWalksDirectories(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.xlsx"))
	touch(t, filepath.Join(dir, "a.csv"))
	touch(t, filepath.Join(dir, "notes.md"))
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	keep := func(p string) bool { return !strings.HasSuffix(p, ".md") }

	got, err := ExpandInputs([]string{dir, "explicit.md"}, keep)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.xlsx"), "explicit.md"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", got, want)
	}

	empty := t.TempDir()
	if _, err := ExpandInputs([]string{empty}, keep); err == nil {
		t.Fatalf("empty directory should fail")
	}
}

func TestExpandPositionalsRecursive(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "2024", "may"), 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(dir, "top.csv"))
	touch(t, filepath.Join(dir, "2024", "may", "plate.csv"))
	touch(t, filepath.Join(dir, "2024", "may", "plate.xlsx"))

	got, err := ExpandPositionals([]string{filepath.Join(dir, "**", "*.{csv,xlsx}")})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{
		filepath.Join(dir, "2024", "may", "plate.csv"),
		filepath.Join(dir, "2024", "may", "plate.xlsx"),
		filepath.Join(dir, "top.csv"),
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", got, want)
	}
}
