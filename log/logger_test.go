package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"Warning": WarnLevel,
		" error ": ErrorLevel,
	}
	for name, want := range cases {
		if got, ok := ParseLevel(name); !ok || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", name, got, ok)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Error("unknown level accepted")
	}
}

func TestInitWritesPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "satellite.log")
	if err := Init(&LogConfig{LogLevel: "warn", LogFile: path}); err != nil {
		t.Fatal(err)
	}
	SetDevice("kitchen-a1b2c3")
	t.Cleanup(func() {
		SetDevice("")
		cfg := LogConfig{EnableConsole: true}
		Init(&cfg)
	})

	Infof("below the level")
	Warnf("hub refused the pipeline")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if strings.Contains(text, "below the level") {
		t.Fatal("info line written at warn level")
	}
	if !strings.Contains(text, "WARN: [kitchen-a1b2c3] ") || !strings.Contains(text, "hub refused the pipeline") {
		t.Fatalf("missing tagged warning in %q", text)
	}
	if strings.Contains(text, "\033[") {
		t.Fatal("color codes written to the log file")
	}
}
