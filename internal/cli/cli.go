// Copyright (C) 2025-2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
)

const (
	appName    = "opsdash"
	appVersion = "0.1.0-alpha"
)

// Execute runs the CLI application
func Execute() error {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}

// Run dispatches one CLI invocation, writing results to stdout and diagnostics to stderr.
func Run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		return printUsage(stdout)
	}

	command := args[0]
	args = args[1:]

	var err error
	switch command {
	case "metrics":
		err = metricsCommand(args, stdout, stderr)
	case "stages":
		err = stagesCommand(args, stdout, stderr)
	case "patterns":
		err = patternsCommand(args, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "%s version %s\n", appName, appVersion)
		return nil
	case "help", "-h", "--help":
		return printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", command)
	}

	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func printUsage(w io.Writer) error {
	fmt.Fprintf(w, `%s - deployment and pipeline status from raw backend data

Usage:
  %s <command> [flags] [arguments]

Commands:
  metrics <logs.json>     Derive deployment metrics from a command transcript
  stages <records.json>   Resolve pipeline stages from polled status records
  patterns                List the command recognition rules
  version                 Print version information
  help                    Show this help message

Common flags:
  --json                  Print raw JSON instead of the rendered view
  --no-color              Disable colored output
  --config <file>         Load settings (logging, pattern catalog) from a config file
  --catalog <file>        Use a YAML pattern catalog on top of the built-in rules

Examples:
  %s metrics deploy-logs.json
  %s metrics --json - < deploy-logs.json
  %s stages --stage build --stage deploy records.json
  %s patterns --catalog patterns.yaml

`, appName, appName, appName, appName, appName, appName)
	return nil
}
