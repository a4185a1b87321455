package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInitAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if err := Init(level); err != nil {
			t.Fatalf("Init(%q) returned error: %v", level, err)
		}
		if Logger() == nil {
			t.Fatalf("Logger() returned nil after Init(%q)", level)
		}
	}
}

func TestInitFallsBackOnUnknownLevel(t *testing.T) {
	if err := Init("nonsense"); err != nil {
		t.Fatalf("expected fallback to info level, got error: %v", err)
	}
}

func TestWithModuleReturnsChild(t *testing.T) {
	if WithModule("authz") == nil {
		t.Fatal("expected module logger")
	}
}

func TestInitNormalisesLevelInput(t *testing.T) {
	if err := Init("  WARN  "); err != nil {
		t.Fatalf("Init with padded level: %v", err)
	}
	if !Logger().Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("expected warn level enabled")
	}
	if Logger().Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("expected info suppressed at warn level")
	}
}
