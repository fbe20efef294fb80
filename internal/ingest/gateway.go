// Package ingest ships checkpoint documents to the memory service and
// records every attempt in a local NDJSON audit log. The audit log is the
// durable record; the remote call is best-effort and never blocks the
// host agent.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"remem/internal/logging"
	"remem/internal/types"
)

const ingestTimeout = 20 * time.Second

// Gateway posts documents to the memory service ingest endpoint.
type Gateway struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     logging.Logger
}

func NewGateway(baseURL, apiKey string, log logging.Logger) *Gateway {
	if log == nil {
		log = logging.Nop()
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: ingestTimeout},
		log:     log,
	}
}

// Ingest posts one document. Without an API key the call is skipped and
// nil is returned; the caller still audit-logs the document locally.
// Failures are logged and reported as nil rather than errors: losing a
// remote copy is acceptable, failing the hook is not.
func (g *Gateway) Ingest(ctx context.Context, doc *types.Document) map[string]any {
	if g.apiKey == "" || doc == nil {
		return nil
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		g.log.Error("ingest encode failed", logging.F("error", err.Error()))
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/documents/ingest", bytes.NewReader(payload))
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		g.log.Warn("ingest failed", logging.F("error", err.Error()))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.log.Warn("ingest rejected", logging.F("status", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{"ok": true}
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return map[string]any{"ok": true}
	}
	return decoded
}

// BaseURL is exposed for log lines and diagnostics output.
func (g *Gateway) BaseURL() string { return g.baseURL }

// HasKey reports whether remote ingestion is configured at all.
func (g *Gateway) HasKey() bool { return g.apiKey != "" }

func (g *Gateway) String() string {
	return fmt.Sprintf("gateway{url=%s key=%v}", g.baseURL, g.apiKey != "")
}
