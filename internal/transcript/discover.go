package transcript

import (
	"bufio"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const sessionMetaScanLines = 60

// DiscoverCodex locates the rollout transcript for the Codex session
// running in cwd. Existing known paths are reused while they still exist;
// otherwise the sessions directory is scanned newest-first (bounded by
// scanLimit) for a rollout file whose session_meta cwd matches. Returns
// the empty string when nothing matches.
func DiscoverCodex(sessionsDir, cwd, existing string, startedAt time.Time, scanLimit int) string {
	if existing != "" {
		if _, err := os.Stat(existing); err == nil {
			return existing
		}
	}
	if sessionsDir == "" {
		return ""
	}
	if scanLimit < 1 {
		scanLimit = 1
	}

	type candidate struct {
		path  string
		mtime time.Time
	}
	cutoff := startedAt.Add(-time.Hour)
	var candidates []candidate
	_ = filepath.WalkDir(sessionsDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "rollout-") || !strings.HasSuffix(name, ".jsonl") {
			return nil
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().Before(cutoff) {
			return nil
		}
		candidates = append(candidates, candidate{path: path, mtime: info.ModTime()})
		return nil
	})
	if len(candidates) == 0 {
		return ""
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].mtime.After(candidates[j].mtime)
	})
	if len(candidates) > scanLimit {
		candidates = candidates[:scanLimit]
	}

	resolvedCwd := resolve(cwd)
	for _, cand := range candidates {
		metaCwd := sessionMetaCwd(cand.path)
		if metaCwd == "" {
			continue
		}
		if resolve(metaCwd) == resolvedCwd {
			return cand.path
		}
	}
	return ""
}

// sessionMetaCwd reads the cwd recorded in the transcript's session_meta
// record, checking only the first few lines.
func sessionMetaCwd(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 0; scanner.Scan() && line < sessionMetaScanLines; line++ {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var row struct {
			Type    string `json:"type"`
			Payload struct {
				Cwd string `json:"cwd"`
			} `json:"payload"`
		}
		if err := json.Unmarshal([]byte(raw), &row); err != nil {
			continue
		}
		if row.Type != "session_meta" {
			continue
		}
		return strings.TrimSpace(row.Payload.Cwd)
	}
	return ""
}

func resolve(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return resolved
}
