package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"docwatch/internal/history"
)

// runHistory builds the handler for the history command.
func runHistory(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		configPath := flags.String("config", "", "Path to config file (default: search for .docwatch/config.yml)")
		limit := flags.Int("limit", 20, "Number of runs to list")
		asJSON := flags.Bool("json", false, "Print runs as JSON")
		show := flags.String("show", "", "Print the stored summary of one run")
		if code, ok := parseCommandFlags(cmd, flags, args, 0, stdout, stderr); !ok {
			return code
		}
		if *limit <= 0 {
			fmt.Fprintln(stderr, "invalid arguments: --limit must be > 0")
			printCommandUsage(cmd, stderr)
			return ExitUsage
		}

		cfg, err := resolveConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "History failed: %v\n", err)
			return ExitError
		}
		if !cfg.HistoryEnabled() {
			fmt.Fprintln(stderr, "History is disabled in config.")
			return ExitError
		}
		logger, closeLog, err := commandLogger(cfg, stderr, false, false)
		if err != nil {
			fmt.Fprintf(stderr, "History failed: %v\n", err)
			return ExitError
		}
		defer func() { _ = closeLog() }()

		ctx := context.Background()
		store, err := history.Open(ctx, cfg.History.Path, logger)
		if err != nil {
			fmt.Fprintf(stderr, "History failed: %v\n", err)
			return ExitError
		}
		defer func() { _ = store.Close() }()

		if *show != "" {
			entry, err := store.Get(ctx, *show)
			if err != nil {
				if errors.Is(err, history.ErrNotFound) {
					fmt.Fprintf(stderr, "No run %q in history.\n", *show)
					return ExitError
				}
				fmt.Fprintf(stderr, "History failed: %v\n", err)
				return ExitError
			}
			return printJSON(stdout, stderr, entry)
		}

		entries, err := store.List(ctx, *limit)
		if err != nil {
			fmt.Fprintf(stderr, "History failed: %v\n", err)
			return ExitError
		}
		if *asJSON {
			if entries == nil {
				entries = []history.Entry{}
			}
			return printJSON(stdout, stderr, entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(stdout, "No runs recorded yet.")
			return ExitOK
		}
		fmt.Fprintln(stdout, historyTable(entries))
		return ExitOK
	}
}

// historyTable renders entries newest first.
func historyTable(entries []history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		decision := entry.DecisionStatus
		if entry.NeedsRewrite {
			decision += " (rewrite)"
		}
		rows = append(rows, []string{
			entry.RunID,
			entry.CreatedAt.Local().Format("2006-01-02 15:04"),
			entry.FileName,
			decision,
			strconv.Itoa(entry.IssueCount),
			(time.Duration(entry.DurationMS) * time.Millisecond).Round(100 * time.Millisecond).String(),
		})
	}
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "CREATED", "FILE", "DECISION", "ISSUES", "DURATION").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}

// printJSON writes value as indented JSON.
func printJSON(stdout, stderr io.Writer, value any) int {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "encode json: %v\n", err)
		return ExitError
	}
	fmt.Fprintln(stdout, string(data))
	return ExitOK
}
