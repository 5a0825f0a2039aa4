package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	return out
}

func TestNewJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "debug", Format: "json", Output: &buf, ServiceName: "svc"})

	l.Info("hello")

	line := decodeLine(t, &buf)
	if line["message"] != "hello" {
		t.Errorf("expected message hello, got %v", line["message"])
	}
	if line["service"] != "svc" {
		t.Errorf("expected service svc, got %v", line["service"])
	}
	if _, ok := line["timestamp"]; !ok {
		t.Error("expected timestamp key")
	}
}

func TestNewInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "loud", Output: &buf})

	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected debug to be filtered, got %q", buf.String())
	}
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "info", Output: &buf})

	ctx := base.WithContext(context.Background())
	ctx = SetJobID(ctx, "job-1")
	ctx = SetProvider(ctx, "unsplash")

	if got := GetJobID(ctx); got != "job-1" {
		t.Errorf("expected job-1, got %q", got)
	}

	CtxInfo(ctx, "downloaded %d", 3)
	line := decodeLine(t, &buf)
	if line[FieldJobID] != "job-1" || line[FieldProvider] != "unsplash" {
		t.Errorf("expected context fields in line, got %v", line)
	}
	if line["message"] != "downloaded 3" {
		t.Errorf("expected formatted message, got %v", line["message"])
	}
}

func TestEntryMergesMetricFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := New(&Config{Level: "info", Output: &buf}).WithContext(context.Background())

	With(Fields{FieldCount: 2}).WithTokens(40).WithStatus("ok").Info(ctx, "batch")

	line := decodeLine(t, &buf)
	if line[FieldCount] != float64(2) {
		t.Errorf("expected count 2, got %v", line[FieldCount])
	}
	if line[FieldTokens] != float64(40) {
		t.Errorf("expected tokens 40, got %v", line[FieldTokens])
	}
	if line[FieldStatus] != "ok" {
		t.Errorf("expected status ok, got %v", line[FieldStatus])
	}
}

func TestFromContextNilUsesDefault(t *testing.T) {
	var ctx context.Context
	if FromContext(ctx) != GetDefault() {
		t.Error("expected default logger for nil context")
	}
}
