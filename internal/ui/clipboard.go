package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	osc52 "github.com/aymanbagabas/go-osc52/v2"
)

var clipboardWriteAll = clipboard.WriteAll
var clipboardWriteOSC52 = writeOSC52Clipboard

// copyTextToClipboard tries the system clipboard first and falls back to
// an OSC52 escape sequence so copy works over SSH.
func copyTextToClipboard(text string) error {
	sysErr := clipboardWriteAll(text)
	if sysErr == nil {
		return nil
	}
	if oscErr := clipboardWriteOSC52(text); oscErr != nil {
		return fmt.Errorf("system clipboard: %v; OSC52 fallback: %v", sysErr, oscErr)
	}
	return nil
}

func writeOSC52Clipboard(text string) error {
	if !shouldAttemptOSC52() {
		return errors.New("OSC52 unavailable for this terminal")
	}
	tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open /dev/tty: %w", err)
	}
	defer tty.Close()
	return writeOSC52Sequence(tty, text)
}

func writeOSC52Sequence(w io.Writer, text string) error {
	if os.Getenv("TMUX") != "" {
		// Emit both plain and tmux-wrapped OSC52 so either tmux clipboard
		// configuration picks it up.
		if _, err := osc52.New(text).WriteTo(w); err != nil {
			return err
		}
		_, err := osc52.New(text).Tmux().WriteTo(w)
		return err
	}
	if strings.HasPrefix(strings.ToLower(os.Getenv("TERM")), "screen") {
		_, err := osc52.New(text).Screen().WriteTo(w)
		return err
	}
	_, err := osc52.New(text).WriteTo(w)
	return err
}

func shouldAttemptOSC52() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("REMEM_DISABLE_OSC52"))) {
	case "1", "true", "yes", "on":
		return false
	}
	term := strings.TrimSpace(os.Getenv("TERM"))
	return term != "" && !strings.EqualFold(term, "dumb")
}
