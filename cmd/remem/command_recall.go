package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io"
	"os"
	"strings"
	"time"

	"remem/internal/recall"
)

type RecallCommand struct {
	wiring commandWiring
}

func NewRecallCommand(wiring commandWiring) *RecallCommand {
	return &RecallCommand{wiring: wiring}
}

func (c *RecallCommand) Run(args []string) error {
	fs := flag.NewFlagSet("recall", flag.ContinueOnError)
	fs.SetOutput(c.wiring.stderr)
	queryFlag := fs.String("query", "", "query text")
	queryFile := fs.String("query-file", "", "read query text from file")
	mode := fs.String("mode", recall.ModeFast, "query mode: fast or rich")
	maxResults := fs.Int("max-results", 10, "maximum results to return")
	synthesize := fs.Bool("synthesize", false, "request LLM synthesis (rich mode only)")
	var projects, sessions, kinds stringList
	fs.Var(&projects, "checkpoint-project", "checkpoint project filter (repeatable)")
	fs.Var(&sessions, "checkpoint-session", "checkpoint session filter (repeatable)")
	fs.Var(&kinds, "checkpoint-kind", "checkpoint kind filter (repeatable)")
	filtersJSON := fs.String("filters-json", "", "additional filters as a JSON object")
	includeFacts := fs.Bool("include-facts", false, "include memory layer facts in results")
	entity := fs.String("entity", "", "scope facts to a specific entity name")
	apiURL := fs.String("api-url", "", "memory API base URL override")
	apiKey := fs.String("api-key", "", "memory API key override")
	output := fs.String("output", "", "write response JSON to this file")
	logFile := fs.String("log-file", "", "NDJSON recall log file override")
	noLog := fs.Bool("no-log", false, "skip writing the local recall log entry")
	dryRun := fs.Bool("dry-run", false, "print payload and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cwd, err := c.wiring.getwd()
	if err != nil {
		return err
	}
	cfg := c.wiring.loadConfig(cwd, "")
	if *apiURL == "" {
		*apiURL = cfg.APIURL
	}
	if *apiKey == "" {
		*apiKey = cfg.APIKey
	}

	query, err := c.readQuery(*queryFlag, *queryFile)
	if err != nil {
		return err
	}

	filters, err := recall.BuildFilters(projects, sessions, kinds, *filtersJSON)
	if err != nil {
		return err
	}
	request := recall.Request{
		Query:        query,
		Mode:         *mode,
		MaxResults:   *maxResults,
		Synthesize:   *synthesize,
		Filters:      filters,
		IncludeFacts: *includeFacts,
		Entity:       *entity,
	}
	if err := request.Validate(); err != nil {
		return err
	}

	if *dryRun {
		return printJSON(c.wiring.stdout, map[string]any{
			"payload":  request,
			"response": nil,
		})
	}

	if *apiURL == "" || *apiKey == "" {
		return errors.New("recall requires REMEM_API_URL and REMEM_API_KEY (or --api-url/--api-key)")
	}
	response, err := recall.NewClient(*apiURL, *apiKey).Query(context.Background(), request)
	if err != nil {
		return err
	}

	if !*noLog {
		logPath := resolveLogPath(cwd, *logFile, cfg.RecallPath)
		entry := recall.LogEntry{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Payload:   request,
			Response:  response,
		}
		if err := recall.AppendLog(logPath, entry); err != nil {
			return err
		}
	}

	result := map[string]any{
		"payload":  request,
		"response": response,
	}
	if *output != "" {
		raw, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(*output, raw, 0o644); err != nil {
			return err
		}
	}
	return printJSON(c.wiring.stdout, result)
}

// readQuery prefers the flag, then the file, then piped stdin.
func (c *RecallCommand) readQuery(flagValue, filePath string) (string, error) {
	if flagValue != "" {
		return strings.TrimSpace(flagValue), nil
	}
	if filePath != "" {
		raw, err := os.ReadFile(filePath)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	if c.wiring.stdin != nil {
		if file, ok := c.wiring.stdin.(*os.File); ok {
			if info, err := file.Stat(); err != nil || info.Mode()&os.ModeCharDevice != 0 {
				return "", nil
			}
		}
		raw, err := io.ReadAll(c.wiring.stdin)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	return "", nil
}
