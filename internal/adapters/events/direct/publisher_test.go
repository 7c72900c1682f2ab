package direct

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/tjfontaine/pipeline-library/internal/core/domain"
)

func TestNewPublisher_NilLogger(t *testing.T) {
	if NewPublisher(nil) == nil {
		t.Fatal("NewPublisher returned nil")
	}
}

func TestPublish(t *testing.T) {
	var buf bytes.Buffer
	publisher := NewPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	event := &domain.LifecycleEvent{
		Type:      domain.LifecycleEventSaved,
		Pipeline:  "ingest",
		Rev:       "3",
		User:      "carol",
		RequestID: "req-1",
		Timestamp: time.Now(),
	}
	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log entry is not JSON: %v (%s)", err, buf.String())
	}
	want := map[string]string{
		"event":      "pipeline.saved",
		"pipeline":   "ingest",
		"rev":        "3",
		"user":       "carol",
		"request_id": "req-1",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %q", k, entry[k], v)
		}
	}
}

func TestPublish_NilEvent(t *testing.T) {
	var buf bytes.Buffer
	publisher := NewPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))
	if err := publisher.Publish(context.Background(), nil); err != nil {
		t.Fatalf("Publish(nil) failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log output, got %s", buf.String())
	}
}

func TestClose(t *testing.T) {
	if err := NewPublisher(nil).Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
