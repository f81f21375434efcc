package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env     string
		level   string
		wantErr bool
		enabled zapcore.Level
	}{
		{env: "prod", enabled: zapcore.InfoLevel},
		{env: "local", enabled: zapcore.DebugLevel},
		{env: "docker", level: "warn", enabled: zapcore.WarnLevel},
		{env: "test"},
		{env: "staging", wantErr: true},
		{env: "prod", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			l, err := NewLogger(tt.env, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger: %v", err)
			}
			if tt.env == "test" {
				if l.Core().Enabled(zapcore.ErrorLevel) {
					t.Error("test logger must discard output")
				}
				return
			}
			if !l.Core().Enabled(tt.enabled) {
				t.Errorf("level %s not enabled", tt.enabled)
			}
			if tt.enabled > zapcore.DebugLevel && l.Core().Enabled(tt.enabled-1) {
				t.Errorf("level %s unexpectedly enabled", tt.enabled-1)
			}
		})
	}
}

func TestContextLogger(t *testing.T) {
	ctx := context.Background()
	fallback := zap.NewExample()

	if FromContext(ctx) == nil {
		t.Fatal("FromContext must never return nil")
	}
	if FromContextOr(ctx, fallback) != fallback {
		t.Error("expected fallback when context has no logger")
	}

	stored := zap.NewNop().Named("request")
	ctx = ContextWithLogger(ctx, stored)
	if FromContext(ctx) != stored {
		t.Error("FromContext did not return stored logger")
	}
	if FromContextOr(ctx, fallback) != stored {
		t.Error("FromContextOr did not return stored logger")
	}
}
