package model

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadMissingPreferences(t *testing.T) {
	prefs, err := LoadPreferences(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if len(prefs.ActiveWakeWords) != 0 || prefs.Volume != nil || prefs.ThinkingSound != 0 {
		t.Fatalf("expected empty preferences, got %+v", prefs)
	}
}

func TestPreferencesSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "preferences.json")
	volume := 0.4
	want := &Preferences{ActiveWakeWords: []string{"okay_nabu"}, Volume: &volume, ThinkingSound: 1}

	if err := want.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestLoadCorruptPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPreferences(path); err == nil {
		t.Fatal("expected error")
	}
}
