package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("debug mode enables debug level", func(t *testing.T) {
		logger, err := New(true)
		if err != nil {
			t.Fatalf("New(true) error: %v", err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("debug logger should enable debug level")
		}
		_ = logger.Sync()
	})

	t.Run("default mode only logs warnings", func(t *testing.T) {
		logger, err := New(false)
		if err != nil {
			t.Fatalf("New(false) error: %v", err)
		}
		if logger.Core().Enabled(zapcore.InfoLevel) {
			t.Error("info level should be disabled")
		}
		if !logger.Core().Enabled(zapcore.WarnLevel) {
			t.Error("warn level should be enabled")
		}
	})
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
}
