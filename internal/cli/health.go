package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"time"
)

// checkTimeout bounds the health and version commands.
const checkTimeout = 30 * time.Second

// runHealth builds the handler for the health command.
func runHealth(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		configPath := flags.String("config", "", "Path to config file (default: search for .docwatch/config.yml)")
		retries := flags.Int("retries", -1, "Retries for transient failures (default: from config)")
		if code, ok := parseCommandFlags(cmd, flags, args, 0, stdout, stderr); !ok {
			return code
		}

		cfg, err := resolveConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Health check failed: %v\n", err)
			return ExitError
		}
		if *retries >= 0 {
			cfg.Server.HealthRetries = *retries
		}
		logger, closeLog, err := commandLogger(cfg, stderr, false, false)
		if err != nil {
			fmt.Fprintf(stderr, "Health check failed: %v\n", err)
			return ExitError
		}
		defer func() { _ = closeLog() }()

		svc, err := newServiceClient(cfg, logger)
		if err != nil {
			fmt.Fprintf(stderr, "Health check failed: %v\n", err)
			return ExitError
		}
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		health, err := svc.Health(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Health check failed: %v\n", err)
			return ExitError
		}
		fmt.Fprintf(stdout, "%s: %s\n", svc.BaseURL(), health.Status)
		return ExitOK
	}
}

// runVersion builds the handler for the version command.
func runVersion(cmd *Command) func(args []string, stdout, stderr io.Writer) int {
	return func(args []string, stdout, stderr io.Writer) int {
		if wantsHelp(args) {
			printCommandUsage(cmd, stdout)
			return ExitOK
		}

		flags := flag.NewFlagSet(cmd.Name, flag.ContinueOnError)
		flags.SetOutput(stderr)
		configPath := flags.String("config", "", "Path to config file (default: search for .docwatch/config.yml)")
		if code, ok := parseCommandFlags(cmd, flags, args, 0, stdout, stderr); !ok {
			return code
		}

		cfg, err := resolveConfig(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Version failed: %v\n", err)
			return ExitError
		}
		logger, closeLog, err := commandLogger(cfg, stderr, false, false)
		if err != nil {
			fmt.Fprintf(stderr, "Version failed: %v\n", err)
			return ExitError
		}
		defer func() { _ = closeLog() }()

		svc, err := newServiceClient(cfg, logger)
		if err != nil {
			fmt.Fprintf(stderr, "Version failed: %v\n", err)
			return ExitError
		}
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()
		info, err := svc.Version(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "Version failed: %v\n", err)
			return ExitError
		}
		keys := make([]string, 0, len(info))
		for key := range info {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(stdout, "%-12s %s\n", key, info[key])
		}
		return ExitOK
	}
}
