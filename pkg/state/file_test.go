package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestLoadJSONFile_MissingReturnsZero(t *testing.T) {
	v, err := LoadJSONFile[sample](filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadJSONFile error: %v", err)
	}
	if v.Name != "" || v.Items != nil {
		t.Fatalf("expected zero value, got %+v", v)
	}
}

func TestSaveJSONFileIndented_CreatesDirsAndOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "state.json")

	if err := SaveJSONFileIndented(path, sample{Name: "one"}); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	if err := SaveJSONFileIndented(path, sample{Name: "two", Items: []string{"x"}}); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasSuffix(string(raw), "\n") {
		t.Fatalf("expected trailing newline")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file should be renamed away, stat err=%v", err)
	}

	v, err := LoadJSONFile[sample](path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v.Name != "two" || len(v.Items) != 1 {
		t.Fatalf("unexpected %+v", v)
	}
}

func TestBaseDir_UsesXDGCacheHome(t *testing.T) {
	if os.Getenv("HOME") == "" {
		t.Skip("no HOME")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	got := BaseDir()
	if filepath.Base(got) != "assistanthub" {
		t.Fatalf("BaseDir=%q", got)
	}
}
