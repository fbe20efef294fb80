package ingest

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"remem/internal/types"
)

// AuditLog is the append-only NDJSON file recording every checkpoint and
// rollup produced locally, whether or not remote ingestion succeeded.
type AuditLog struct {
	path string
}

func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

func (l *AuditLog) Path() string { return l.path }

// Append writes one record as a single JSON line.
func (l *AuditLog) Append(record types.AuditRecord) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return err
	}
	file, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()

	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}

// AppendNow stamps the record with the current time before appending.
func (l *AuditLog) AppendNow(event string, payload *types.Document, response map[string]any) error {
	return l.Append(types.AuditRecord{
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Event:     event,
		Payload:   payload,
		Response:  response,
	})
}

// ReadAll returns every parseable record. Corrupt lines are skipped so a
// partial write never poisons the whole log.
func (l *AuditLog) ReadAll() ([]types.AuditRecord, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var records []types.AuditRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record types.AuditRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}

// CheckpointsFor returns the checkpoint records belonging to one
// project/session pair, in log order.
func (l *AuditLog) CheckpointsFor(project, sessionID string) ([]types.AuditRecord, error) {
	all, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []types.AuditRecord
	for _, record := range all {
		if record.Event != types.AuditEventCheckpoint || record.Payload == nil {
			continue
		}
		meta := record.Payload.Metadata
		if meta == nil {
			continue
		}
		if meta["project"] != project || meta["session_id"] != sessionID {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}
