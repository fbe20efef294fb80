// Package recall queries the memory service for prior session context and
// keeps a local NDJSON log of every recall made.
package recall

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const queryTimeout = 45 * time.Second

// Query modes: fast returns raw matches, rich adds reranking and
// optional synthesis.
const (
	ModeFast = "fast"
	ModeRich = "rich"
)

// Request is one recall query. Zero-valued optional fields are omitted
// from the wire payload.
type Request struct {
	Query        string         `json:"query"`
	Mode         string         `json:"mode"`
	MaxResults   int            `json:"max_results"`
	Synthesize   bool           `json:"synthesize,omitempty"`
	Filters      map[string]any `json:"filters,omitempty"`
	IncludeFacts bool           `json:"include_facts,omitempty"`
	Entity       string         `json:"entity,omitempty"`
}

// Validate rejects requests the service would refuse anyway.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return errors.New("query is required")
	}
	if r.Mode != ModeFast && r.Mode != ModeRich {
		return fmt.Errorf("mode must be %q or %q", ModeFast, ModeRich)
	}
	if r.MaxResults < 1 {
		return errors.New("max results must be at least 1")
	}
	return nil
}

// BuildFilters merges the dedicated checkpoint filter flags with an
// optional raw JSON filter object. Raw keys win on collision.
func BuildFilters(projects, sessions, kinds []string, rawJSON string) (map[string]any, error) {
	filters := map[string]any{}
	if len(projects) > 0 {
		filters["checkpoint_project"] = projects
	}
	if len(sessions) > 0 {
		filters["checkpoint_session"] = sessions
	}
	if len(kinds) > 0 {
		filters["checkpoint_kinds"] = kinds
	}
	if strings.TrimSpace(rawJSON) != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(rawJSON), &extra); err != nil {
			return nil, fmt.Errorf("filters must be a JSON object: %w", err)
		}
		for key, value := range extra {
			filters[key] = value
		}
	}
	if len(filters) == 0 {
		return nil, nil
	}
	return filters, nil
}

// Client posts recall queries to the memory service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: queryTimeout},
	}
}

// Query runs one recall request and returns the decoded response.
func (c *Client) Query(ctx context.Context, request Request) (map[string]any, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}
	if c.apiKey == "" {
		return nil, errors.New("api key is required")
	}
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/query", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("query failed: %s", resp.Status)
	}
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

// LogEntry is one line of the local recall log.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Payload   Request        `json:"payload"`
	Response  map[string]any `json:"response,omitempty"`
}

// AppendLog records a recall in the NDJSON log file.
func AppendLog(path string, entry LogEntry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()
	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = file.Write(append(line, '\n'))
	return err
}
