package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/rpattn/consulta/internal/config"
)

func TestNewAppliesLevel(t *testing.T) {
	log, err := New(config.LogConfig{Level: "WARN", Encoding: "console"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !log.Core().Enabled(zapcore.WarnLevel) {
		t.Fatalf("warn should be enabled")
	}
}

func TestNewFallsBackOnUnknownSettings(t *testing.T) {
	log, err := New(config.LogConfig{Level: "chatty", Encoding: "xml"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !log.Core().Enabled(zapcore.InfoLevel) || log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("unknown level should fall back to info")
	}
}
