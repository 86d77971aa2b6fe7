// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package patterns

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownHandler is returned when a catalog rule names a handler kind that does not exist.
var ErrUnknownHandler = errors.New("unknown handler kind")

// CatalogFile is the YAML form of a catalog customisation. It is applied on top of the
// built-in table.
//
//	inert_commands: [bat, jq]
//	rules:
//	  - name: source-checkout
//	    label: Fetch sources
//	    commands: ["svn checkout"]
//	  - name: helm-upgrade
//	    label: Helm upgrade
//	    kind: generic
//	    critical: true
//	    patterns: ['\bhelm (?:upgrade|install)\b']
//	    before: manifest-apply
type CatalogFile struct {
	InertCommands []string   `yaml:"inert_commands"`
	Rules         []RuleSpec `yaml:"rules"`
}

// RuleSpec overrides a built-in rule (matched by name) or defines a new one.
type RuleSpec struct {
	Name     string      `yaml:"name"`
	Label    string      `yaml:"label"`
	Kind     HandlerKind `yaml:"kind"`
	Critical *bool       `yaml:"critical"`
	Disabled bool        `yaml:"disabled"`
	Commands []string    `yaml:"commands"` // substrings of the normalized command
	Patterns []string    `yaml:"patterns"` // regexps over the normalized command
	Before   string      `yaml:"before"`   // insert a new rule ahead of this one
}

// LoadCatalog reads a YAML catalog file and builds a catalog from it.
func LoadCatalog(path string) (*Catalog, error) {
	file, err := ReadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	return Build(file)
}

// ReadCatalogFile reads and parses a YAML catalog file without building it.
func ReadCatalogFile(path string) (*CatalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern catalog: %w", err)
	}

	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pattern catalog YAML: %w", err)
	}
	return &file, nil
}

// Load builds the catalog selected by configuration: the file at path when set, or the
// built-in table otherwise, with extraInert added to the inert command set.
func Load(path string, extraInert []string) (*Catalog, error) {
	file := &CatalogFile{}
	if path != "" {
		var err error
		if file, err = ReadCatalogFile(path); err != nil {
			return nil, err
		}
	}
	file.InertCommands = append(file.InertCommands, extraInert...)
	return Build(file)
}

// Validate checks the catalog file for errors.
func (f *CatalogFile) Validate() error {
	seen := make(map[string]bool)
	for i, spec := range f.Rules {
		if strings.TrimSpace(spec.Name) == "" {
			return fmt.Errorf("rule %d: name is required", i)
		}
		if seen[spec.Name] {
			return fmt.Errorf("rule %d: duplicate name %q", i, spec.Name)
		}
		seen[spec.Name] = true

		if spec.Kind != "" && !KnownKind(spec.Kind) {
			return fmt.Errorf("rule %q: %w: %s (known: %s)", spec.Name, ErrUnknownHandler, spec.Kind, joinKinds(Kinds()))
		}
		for _, p := range spec.Patterns {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("rule %q: invalid pattern %q: %w", spec.Name, p, err)
			}
		}
	}
	for _, cmd := range f.InertCommands {
		if strings.TrimSpace(cmd) == "" || strings.ContainsAny(cmd, " \t") {
			return fmt.Errorf("inert command %q must be a single program name", cmd)
		}
	}
	return nil
}

// Build applies a catalog file to the built-in table. A nil file yields the built-in catalog.
func Build(file *CatalogFile) (*Catalog, error) {
	if file == nil {
		file = &CatalogFile{}
	}
	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pattern catalog: %w", err)
	}

	c := &Catalog{inert: make(map[string]struct{})}
	for _, cmd := range DefaultInertCommands {
		c.inert[cmd] = struct{}{}
	}
	for _, cmd := range file.InertCommands {
		c.inert[strings.ToLower(cmd)] = struct{}{}
	}

	rules := defaultRules(c.IsInertRead)
	for _, spec := range file.Rules {
		var err error
		if idx := indexOf(rules, spec.Name); idx >= 0 {
			rules[idx] = overrideRule(rules[idx], spec)
		} else if rules, err = insertRule(rules, spec); err != nil {
			return nil, err
		}
	}

	for _, r := range rules {
		if r.Kind != "" {
			c.rules = append(c.rules, r)
		}
	}
	return c, nil
}

// overrideRule applies a spec to an existing rule. Disabled rules keep their slot but are
// emptied so Build drops them.
func overrideRule(r Rule, spec RuleSpec) Rule {
	if spec.Disabled {
		return Rule{Name: r.Name}
	}
	if spec.Label != "" {
		r.Label = spec.Label
	}
	if spec.Kind != "" {
		r.Kind = spec.Kind
	}
	if spec.Critical != nil {
		r.Critical = *spec.Critical
	}
	if extra := specPredicate(spec); extra != nil {
		r.Match = Any(r.Match, extra)
	}
	return r
}

func insertRule(rules []Rule, spec RuleSpec) ([]Rule, error) {
	if spec.Disabled {
		return rules, nil
	}
	if spec.Label == "" || spec.Kind == "" {
		return nil, fmt.Errorf("new rule %q requires label and kind", spec.Name)
	}
	match := specPredicate(spec)
	if match == nil {
		return nil, fmt.Errorf("new rule %q requires commands or patterns", spec.Name)
	}
	r := Rule{Name: spec.Name, Label: spec.Label, Kind: spec.Kind, Match: match}
	if spec.Critical != nil {
		r.Critical = *spec.Critical
	}

	if spec.Before == "" {
		return append(rules, r), nil
	}
	idx := indexOf(rules, spec.Before)
	if idx < 0 {
		return nil, fmt.Errorf("rule %q: before references unknown rule %q", spec.Name, spec.Before)
	}
	out := make([]Rule, 0, len(rules)+1)
	out = append(out, rules[:idx]...)
	out = append(out, r)
	return append(out, rules[idx:]...), nil
}

func specPredicate(spec RuleSpec) Predicate {
	var preds []Predicate
	if len(spec.Commands) > 0 {
		preds = append(preds, CommandContains(spec.Commands...))
	}
	for _, p := range spec.Patterns {
		// Validate has already compiled every pattern.
		preds = append(preds, CommandMatches(regexp.MustCompile(p)))
	}
	if len(preds) == 0 {
		return nil
	}
	return Any(preds...)
}

func indexOf(rules []Rule, name string) int {
	for i, r := range rules {
		if r.Name == name {
			return i
		}
	}
	return -1
}

func joinKinds(kinds []HandlerKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
