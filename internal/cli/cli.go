package cli

import (
	"fmt"
	"io"
)

const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
	// ExitCancelled follows the shell convention for SIGINT.
	ExitCancelled = 130
)

type Command struct {
	Name    string
	Summary string
	Usage   []string
	Run     func(args []string, stdout, stderr io.Writer) int
}

func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return ExitUsage
	}
	if isHelpArg(args[0]) {
		printUsage(stdout)
		return ExitOK
	}

	cmd := findCommand(args[0])
	if cmd == nil {
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return ExitUsage
	}

	return cmd.Run(args[1:], stdout, stderr)
}

func findCommand(name string) *Command {
	for _, cmd := range commands {
		if cmd.Name == name {
			return cmd
		}
	}
	return nil
}

func isHelpArg(arg string) bool {
	switch arg {
	case "-h", "--help", "help":
		return true
	default:
		return false
	}
}

func wantsHelp(args []string) bool {
	for _, arg := range args {
		switch arg {
		case "-h", "--help":
			return true
		}
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  docwatch <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-11s %s\n", cmd.Name, cmd.Summary)
	}
	fmt.Fprintln(w, "\nUse \"docwatch <command> --help\" for more information.")
}

func printCommandUsage(cmd *Command, w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	for _, line := range cmd.Usage {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if cmd.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", cmd.Summary)
	}
}

func command(name, summary string, usage []string, runner func(cmd *Command) func(args []string, stdout, stderr io.Writer) int) *Command {
	cmd := &Command{
		Name:    name,
		Summary: summary,
		Usage:   usage,
	}
	cmd.Run = runner(cmd)
	return cmd
}

var commands = []*Command{
	command("submit", "Submit a PDF and follow its analysis", []string{
		"docwatch submit [--config <path>] [--ui auto|live|plain] [--out <file.json>] [--set <path=value>]... [--wait] [--no-history] [--verbose] <file.pdf>",
	}, runSubmit),
	command("health", "Check that the extraction service is up", []string{
		"docwatch health [--config <path>] [--retries <n>]",
	}, runHealth),
	command("version", "Show the extraction service build", []string{
		"docwatch version [--config <path>]",
	}, runVersion),
	command("history", "List recorded runs", []string{
		"docwatch history [--config <path>] [--limit <n>] [--json]",
		"docwatch history [--config <path>] --show <run-id>",
	}, runHistory),
	command("selfcheck", "Run the result extractor fixtures", []string{
		"docwatch selfcheck",
	}, runSelfCheck),
	command("mock-server", "Serve a fake extraction back end", []string{
		"docwatch mock-server [--addr <host:port>] [--scenario <name>] [--step-delay <duration>] [--max-mb <n>]",
	}, runMockServer),
	command("init", "Scaffold .docwatch/config.yml", []string{
		"docwatch init [--config <path>]",
	}, runInit),
	command("validate", "Validate .docwatch/config.yml", []string{
		"docwatch validate [--config <path>]",
	}, runValidate),
}
