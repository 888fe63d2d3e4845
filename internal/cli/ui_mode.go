package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// uiModeDecision captures how a submission renders progress.
type uiModeDecision struct {
	useLive bool
	noColor bool
	warning string
}

// isTerminal reports whether a writer is a TTY.
var isTerminal = defaultIsTerminal

// lookupEnv reads environment variables; tests replace it.
var lookupEnv = os.LookupEnv

// resolveUIMode picks the live or plain renderer. Verbose logging needs the
// terminal for log lines, so it forces plain output.
func resolveUIMode(mode string, verbose bool, stdout io.Writer) (uiModeDecision, error) {
	_, noColor := lookupEnv("NO_COLOR")
	decision := uiModeDecision{noColor: noColor}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		decision.useLive = !verbose && isTerminal(stdout)
	case "live":
		switch {
		case verbose:
			decision.warning = "Live UI disabled by --verbose; using plain output."
		case !isTerminal(stdout):
			decision.warning = "Live UI requested but stdout is not a TTY; falling back to plain output."
		default:
			decision.useLive = true
		}
	case "plain":
	default:
		return uiModeDecision{}, fmt.Errorf("invalid ui mode %q (expected auto|live|plain)", mode)
	}
	return decision, nil
}

// defaultIsTerminal inspects stdout for TTY support.
func defaultIsTerminal(stdout io.Writer) bool {
	if stdout == nil {
		return false
	}
	if fder, ok := stdout.(interface{ Fd() uintptr }); ok {
		return term.IsTerminal(int(fder.Fd()))
	}
	return false
}
