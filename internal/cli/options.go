// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/noldarim/opsdash/internal/config"
	"github.com/noldarim/opsdash/internal/logger"
	"github.com/noldarim/opsdash/internal/pipeobs"
	"github.com/noldarim/opsdash/internal/pipeobs/patterns"
)

// commonOptions are the flags shared by the data commands.
type commonOptions struct {
	json        bool
	noColor     bool
	configPath  string
	catalogPath string
}

func (o *commonOptions) register(fs *flag.FlagSet) {
	fs.BoolVar(&o.json, "json", false, "Print raw JSON")
	fs.BoolVar(&o.noColor, "no-color", false, "Disable colored output")
	fs.StringVar(&o.configPath, "config", "", "Path to config file")
	fs.StringVar(&o.catalogPath, "catalog", "", "Path to a YAML pattern catalog")
}

// service builds the observability service. With --config, logging is initialized from
// the file and the close function must be called when the command finishes.
func (o *commonOptions) service() (*pipeobs.Service, func(), error) {
	closeFn := func() {}
	var (
		catalogPath string
		extraInert  []string
	)

	if o.configPath != "" {
		cfg, err := config.NewConfig(o.configPath)
		if err != nil {
			return nil, closeFn, fmt.Errorf("failed to load config: %w", err)
		}
		if err := logger.Initialize(&cfg.Log); err != nil {
			return nil, closeFn, fmt.Errorf("failed to initialize logger: %w", err)
		}
		closeFn = func() { _ = logger.CloseGlobal() }
		catalogPath = cfg.Patterns.CatalogPath
		extraInert = cfg.Patterns.InertCommands
	}
	if o.catalogPath != "" {
		catalogPath = o.catalogPath
	}

	catalog, err := patterns.Load(catalogPath, extraInert)
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}
	log := logger.GetCLILogger()
	log.Debug().
		Str("catalog", catalogPath).
		Int("rules", len(catalog.Rules())).
		Msg("Pattern catalog loaded")

	return pipeobs.NewService(pipeobs.WithCatalog(catalog)), closeFn, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// readInput reads a file argument; "-" reads standard input.
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// decodeList decodes either a bare JSON array or an object carrying the array under key,
// matching the request bodies of the HTTP API.
func decodeList[T any](data []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to parse input: %w", err)
		}
		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	raw, ok := wrapped[key]
	if !ok {
		return nil, fmt.Errorf("failed to parse input: expected an array or an object with %q", key)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	return items, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func singleArg(fs *flag.FlagSet, what string) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one %s argument (use - for stdin)", what)
	}
	return fs.Arg(0), nil
}
