package log

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmcdole/cinelist/internal/config"
)

func TestSetupLogger_WritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cinelist.log")

	logger, closer, err := SetupLogger(&config.LoggingConfig{File: path, Level: "warn"})
	if err != nil {
		t.Fatalf("SetupLogger returned error: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", "page", 3)
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log is not a single JSON line: %v\n%s", err, data)
	}
	if entry["msg"] != "kept" || entry["page"] != float64(3) {
		t.Fatalf("entry = %v, want msg kept page 3", entry)
	}
}

func TestSetupLogger_EmptyPath(t *testing.T) {
	if _, _, err := SetupLogger(&config.LoggingConfig{}); err == nil {
		t.Fatal("SetupLogger accepted empty path")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
