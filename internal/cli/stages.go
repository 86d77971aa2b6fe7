// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/noldarim/opsdash/internal/pipeobs/resolve"
	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// stagesCommand handles the stages subcommand
func stagesCommand(args []string, stdout, stderr io.Writer) error {
	opts := &commonOptions{}
	var stages []types.Stage
	fs := newFlagSet("stages", stderr)
	opts.register(fs)
	fs.Func("stage", "Stage to resolve (source, build, deploy, operate or an alias), can be repeated", func(s string) error {
		stage, ok := resolve.NormalizeStageName(s)
		if !ok {
			return fmt.Errorf("unknown stage %q", s)
		}
		stages = append(stages, stage)
		return nil
	})
	if err := fs.Parse(args); err != nil {
		return err
	}

	path, err := singleArg(fs, "records file")
	if err != nil {
		return err
	}
	data, err := readInput(path)
	if err != nil {
		return err
	}
	records, err := decodeList[types.PipelineStepRecord](data, "records")
	if err != nil {
		return err
	}

	svc, closeFn, err := opts.service()
	if err != nil {
		return err
	}
	defer closeFn()

	overview := svc.Overview(context.Background(), records, stages...)
	if opts.json {
		return writeJSON(stdout, overview)
	}
	_, err = fmt.Fprint(stdout, renderOverview(overview, newStyles(stdout, opts.noColor)))
	return err
}
