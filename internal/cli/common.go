package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"docwatch/internal/config"
	"docwatch/internal/logging"
)

// parseCommandFlags parses args and enforces the positional argument count.
// It returns the exit code and false when the command should stop.
func parseCommandFlags(cmd *Command, flags *flag.FlagSet, args []string, positional int, stdout, stderr io.Writer) (int, bool) {
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			printCommandUsage(cmd, stdout)
			return ExitOK, false
		}
		fmt.Fprintf(stderr, "invalid arguments: %v\n", err)
		printCommandUsage(cmd, stderr)
		return ExitUsage, false
	}
	if flags.NArg() > positional {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(flags.Args()[positional:], " "))
		printCommandUsage(cmd, stderr)
		return ExitUsage, false
	}
	if flags.NArg() < positional {
		fmt.Fprintln(stderr, "missing required argument")
		printCommandUsage(cmd, stderr)
		return ExitUsage, false
	}
	return ExitOK, true
}

// resolveConfig loads the explicit config, the nearest one, or defaults.
var resolveConfig = func(path string) (config.Config, error) {
	cfg, _, err := config.Resolve(path, "")
	return cfg, err
}

// commandLogger builds the logger of a command from config. When quiet is
// set and no log file is configured, records are dropped so they do not
// tear the live UI.
func commandLogger(cfg config.Config, stderr io.Writer, verbose, quiet bool) (*slog.Logger, func() error, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	if quiet && strings.TrimSpace(cfg.Log.File) == "" {
		return logging.Discard(), func() error { return nil }, nil
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: cfg.Log.Format,
		Writer: stderr,
		File:   cfg.Log.File,
	})
}
