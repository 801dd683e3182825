// logutil_test.go - Unit Tests fuer den Logger-Aufbau
package logutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestNewLoggerLevel testet die Level-Filterung
func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Debug("unterdrueckt")
	logger.Info("sichtbar", "key", "value")

	out := buf.String()
	if strings.Contains(out, "unterdrueckt") {
		t.Error("Debug-Zeile trotz Info-Level ausgegeben")
	}
	if !strings.Contains(out, "sichtbar") || !strings.Contains(out, "key=value") {
		t.Errorf("Info-Zeile fehlt oder unvollstaendig: %q", out)
	}
}

// TestNewLoggerShortSource testet die gekuerzte Quellenangabe
func TestNewLoggerShortSource(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("mit Quelle")

	out := buf.String()
	if !strings.Contains(out, "logutil_test.go") {
		t.Errorf("Quellenangabe fehlt: %q", out)
	}
	if strings.Contains(out, "/logutil/logutil_test.go") {
		t.Errorf("Quellenangabe nicht gekuerzt: %q", out)
	}
}
