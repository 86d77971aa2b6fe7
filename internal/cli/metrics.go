// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// metricsCommand handles the metrics subcommand
func metricsCommand(args []string, stdout, stderr io.Writer) error {
	opts := &commonOptions{}
	fs := newFlagSet("metrics", stderr)
	opts.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	path, err := singleArg(fs, "logs file")
	if err != nil {
		return err
	}
	data, err := readInput(path)
	if err != nil {
		return err
	}
	logs, err := decodeList[types.LogEntry](data, "logs")
	if err != nil {
		return err
	}

	svc, closeFn, err := opts.service()
	if err != nil {
		return err
	}
	defer closeFn()

	metrics := svc.DeployMetrics(context.Background(), logs)
	if opts.json {
		return writeJSON(stdout, metrics)
	}
	_, err = fmt.Fprint(stdout, renderMetrics(metrics, newStyles(stdout, opts.noColor)))
	return err
}
