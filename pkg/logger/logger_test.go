package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := InitWith(&bytes.Buffer{}, "json"); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}
	if err := InitWith(&bytes.Buffer{}, "xml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerContextFields(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWith(&buf, "text"); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := WithFields(context.Background(), String("request_id", "abc-123"))
	Get().Info(ctx, "test message", String("k", "v"))

	out := buf.String()
	for _, want := range []string{"test message", "request_id=abc-123", "k=v", "source="} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWith(&buf, "text"); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level, got %q", buf.String())
	}

	if err := SetLevelString("DEBUG"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Debug(context.Background(), "visible")
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Fatalf("expected debug output, got %q", buf.String())
	}

	if err := SetLevelString("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWith(&buf, "text"); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("store").Info(context.Background(), "named message")
	if !bytes.Contains(buf.Bytes(), []byte("component=store")) {
		t.Fatalf("expected component field, got %q", buf.String())
	}
}

func TestGormLoggerTrace(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWith(&buf, "text"); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	gl := NewGormLogger(Get(), 10*time.Millisecond)
	ctx := context.Background()
	fc := func() (string, int64) { return "SELECT 1", 1 }

	gl.Trace(ctx, time.Now(), fc, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("record not found must not be logged, got %q", buf.String())
	}

	gl.Trace(ctx, time.Now(), fc, errors.New("boom"))
	if !bytes.Contains(buf.Bytes(), []byte("query failed")) {
		t.Fatalf("expected query failure log, got %q", buf.String())
	}

	buf.Reset()
	gl.Trace(ctx, time.Now().Add(-time.Second), fc, nil)
	if !bytes.Contains(buf.Bytes(), []byte("slow query")) {
		t.Fatalf("expected slow query log, got %q", buf.String())
	}

	buf.Reset()
	gl.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), fc, errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("silent mode must not log, got %q", buf.String())
	}
}
