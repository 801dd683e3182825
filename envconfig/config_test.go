// config_test.go - Unit Tests fuer die Laufzeit-Konfiguration
package envconfig

import (
	"log/slog"
	"testing"
	"time"
)

// TestLogLevel testet die YALS_DEBUG-Stufen
func TestLogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{value: "", want: slog.LevelInfo},
		{value: "false", want: slog.LevelInfo},
		{value: "1", want: slog.LevelDebug},
		{value: "true", want: slog.LevelDebug},
		{value: "2", want: slog.Level(-8)},
	}

	for _, tt := range tests {
		t.Run("YALS_DEBUG="+tt.value, func(t *testing.T) {
			t.Setenv("YALS_DEBUG", tt.value)
			if got := LogLevel(); got != tt.want {
				t.Errorf("LogLevel() = %v, erwartet %v", got, tt.want)
			}
		})
	}
}

// TestDecodeRetryBackoff testet Default und Override
func TestDecodeRetryBackoff(t *testing.T) {
	t.Setenv("YALS_DECODE_RETRY_BACKOFF", "")
	if got := DecodeRetryBackoff(); got != 100*time.Millisecond {
		t.Errorf("Default = %v, erwartet 100ms", got)
	}

	t.Setenv("YALS_DECODE_RETRY_BACKOFF", "5ms")
	if got := DecodeRetryBackoff(); got != 5*time.Millisecond {
		t.Errorf("Override = %v, erwartet 5ms", got)
	}

	t.Setenv("YALS_DECODE_RETRY_BACKOFF", "kaputt")
	if got := DecodeRetryBackoff(); got != 100*time.Millisecond {
		t.Errorf("ungueltiger Wert = %v, erwartet Default", got)
	}
}

// TestDefragThresholds testet Defaults und Grenzen
func TestDefragThresholds(t *testing.T) {
	t.Setenv("YALS_DEFRAG_THRESHOLD_IDLE", "")
	t.Setenv("YALS_DEFRAG_THRESHOLD_ACTIVE", "")
	if got := DefragThresholdIdle(); got != 0.6 {
		t.Errorf("DefragThresholdIdle() = %v, erwartet 0.6", got)
	}
	if got := DefragThresholdActive(); got != 0.9 {
		t.Errorf("DefragThresholdActive() = %v, erwartet 0.9", got)
	}

	t.Setenv("YALS_DEFRAG_THRESHOLD_IDLE", "0.5")
	if got := DefragThresholdIdle(); got != 0.5 {
		t.Errorf("Override = %v, erwartet 0.5", got)
	}

	t.Setenv("YALS_DEFRAG_THRESHOLD_IDLE", "7")
	if got := DefragThresholdIdle(); got != 0.6 {
		t.Errorf("Wert ausserhalb (0,1] = %v, erwartet Default", got)
	}
}
