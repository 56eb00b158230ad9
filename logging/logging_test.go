package logging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected Level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected Format 'json', got '%s'", cfg.Format)
	}
	if cfg.Output != OutputStdout {
		t.Errorf("expected Output 'stdout', got '%s'", cfg.Output)
	}
}

func TestConfigZapLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := Config{Level: tt.level}
			if got := cfg.ZapLevel(); got != tt.expected {
				t.Errorf("ZapLevel() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{Level: "debug"}
	cfg.applyDefaults()

	if cfg.Level != "debug" {
		t.Errorf("expected Level to stay 'debug', got '%s'", cfg.Level)
	}
	if cfg.MaxSize != 100 || cfg.Format != "json" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	logger, err := NewLogger(Config{Output: OutputFile, File: path, Level: "debug"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Debug("hello file", zap.String("k", "v"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"message":"hello file"`) || !strings.Contains(string(data), `"k":"v"`) {
		t.Errorf("unexpected log content: %s", data)
	}
}

func TestNewLoggerLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, err := NewLogger(Config{Output: OutputFile, File: path, Level: "warn", Format: "console"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "dropped") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(string(data), "kept") {
		t.Error("warn entry missing")
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNop()
	l.Info("ignored")
	l.With(zap.Int("n", 1)).Named("child").Error("ignored")
	if err := l.Sync(); err != nil {
		t.Errorf("Sync() = %v", err)
	}
}

func TestWithContextAddsTraceID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))

	ctx := SetTraceID(context.Background(), "trace-123")
	WithContext(logger, ctx).Info("test message")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["trace_id"]; got != "trace-123" {
		t.Errorf("trace_id = %v", got)
	}
}

func TestContextLoggerStorage(t *testing.T) {
	logger := NewNop()
	ctx := ToContext(context.Background(), logger)

	if FromContext(ctx) != logger {
		t.Error("FromContext should return the stored logger")
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext should fall back to the global logger")
	}
	if GetTraceID(context.Background()) != "" {
		t.Error("empty context has no trace id")
	}
}

func TestSetGlobal(t *testing.T) {
	prev := Global()
	defer SetGlobal(prev)

	custom := NewNop()
	SetGlobal(custom)
	if Global() != custom {
		t.Error("Global() should return the logger set by SetGlobal")
	}
}

func TestHTTPMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := FromZap(zap.New(core))

	handler := HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) == nil {
			t.Error("request logger missing from context")
		}
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/thumbnails?presets=small", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("http.request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusAccepted) {
		t.Errorf("status = %v", fields["status"])
	}
	if fields["bytes"] != int64(2) {
		t.Errorf("bytes = %v", fields["bytes"])
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(rec, req.WithContext(ToContext(req.Context(), NewNop())))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
