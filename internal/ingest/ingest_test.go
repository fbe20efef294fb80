package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"remem/internal/logging"
	"remem/internal/types"
)

func TestGatewayPostsDocument(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"doc-123"}`))
	}))
	defer server.Close()

	gw := NewGateway(server.URL, "secret-key", logging.Nop())
	resp := gw.Ingest(context.Background(), &types.Document{Title: "t", Content: "c"})
	if resp == nil || resp["id"] != "doc-123" {
		t.Fatalf("response = %v", resp)
	}
	if gotAuth != "Bearer secret-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotPath != "/v1/documents/ingest" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestGatewaySkipsWithoutKey(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	gw := NewGateway(server.URL, "", logging.Nop())
	if resp := gw.Ingest(context.Background(), &types.Document{Title: "t"}); resp != nil {
		t.Fatalf("expected nil response, got %v", resp)
	}
	if called {
		t.Fatal("ingest must not call the service without a key")
	}
}

func TestGatewayServerErrorIsNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	gw := NewGateway(server.URL, "key", logging.Nop())
	if resp := gw.Ingest(context.Background(), &types.Document{Title: "t"}); resp != nil {
		t.Fatalf("expected nil on server error, got %v", resp)
	}
}

func TestGatewayEmptyBodyMeansOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	gw := NewGateway(server.URL, "key", logging.Nop())
	resp := gw.Ingest(context.Background(), &types.Document{Title: "t"})
	if resp == nil || resp["ok"] != true {
		t.Fatalf("response = %v", resp)
	}
}

func TestAuditLogAppendAndFilter(t *testing.T) {
	log := NewAuditLog(filepath.Join(t.TempDir(), "nested", "audit.ndjson"))

	records := []types.AuditRecord{
		{Event: types.AuditEventCheckpoint, Payload: &types.Document{
			Title:    "proj | s1 | interval checkpoint (auto)",
			Metadata: map[string]any{"project": "proj", "session_id": "s1"},
		}},
		{Event: types.AuditEventCheckpoint, Payload: &types.Document{
			Title:    "proj | s2 | interval checkpoint (auto)",
			Metadata: map[string]any{"project": "proj", "session_id": "s2"},
		}},
		{Event: types.AuditEventRollup, Payload: &types.Document{
			Title:    "proj | s1 | final rollup (auto)",
			Metadata: map[string]any{"project": "proj", "session_id": "s1"},
		}},
	}
	for _, record := range records {
		if err := log.Append(record); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := log.CheckpointsFor("proj", "s1")
	if err != nil {
		t.Fatalf("CheckpointsFor: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record for s1, got %d", len(got))
	}
	if got[0].Payload.Title != "proj | s1 | interval checkpoint (auto)" {
		t.Fatalf("wrong record: %q", got[0].Payload.Title)
	}
}

func TestAuditLogSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.ndjson")
	body := `{"event":"auto_checkpoint"}` + "\n" +
		"this is not json\n" +
		`{"event":"auto_rollup"}` + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := NewAuditLog(path).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestAuditLogMissingFile(t *testing.T) {
	records, err := NewAuditLog(filepath.Join(t.TempDir(), "absent.ndjson")).ReadAll()
	if err != nil || records != nil {
		t.Fatalf("ReadAll on missing file = %v, %v", records, err)
	}
}
