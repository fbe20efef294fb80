package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"remem/internal/logging"
	"remem/internal/types"
)

var errIngestCredentials = errors.New("ingest requires REMEM_API_URL and REMEM_API_KEY (or --api-url/--api-key)")

type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func newCommandLogger(stderr io.Writer, level string) logging.Logger {
	return logging.New(stderr, logging.ParseLevel(level))
}

func printJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func validKind(raw string) (types.Kind, error) {
	switch types.Kind(raw) {
	case types.KindInterval, types.KindMilestone, types.KindFinal, types.KindManual:
		return types.Kind(raw), nil
	}
	return "", fmt.Errorf("invalid kind %q (interval, milestone, final, manual)", raw)
}
