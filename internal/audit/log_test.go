package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"timepay.uz/crm/internal/obs"
)

func TestLogEvent(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	ctx := WithRequestID(context.Background(), "req-123")

	if err := LogEvent(ctx, "branch.create", Actor{UserID: 1, OwnerID: 7}, map[string]any{"name": "Chilonzor"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "audit" || entry["event"] != "branch.create" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["user_id"] != float64(1) || entry["owner_id"] != float64(7) {
		t.Fatalf("unexpected actor: %v / %v", entry["user_id"], entry["owner_id"])
	}
	if id, _ := entry["id"].(string); len(id) != 26 {
		t.Fatalf("expected ulid id, got %v", entry["id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["name"] != "Chilonzor" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), " ", Actor{}, nil); err == nil {
		t.Fatal("expected error for empty event")
	}
}
