// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package patterns

import (
	"regexp"
	"sort"

	"github.com/samber/lo"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// Built-in rule names, in table order.
const (
	RuleManifestDump     = "manifest-dump"
	RuleToolCheck        = "tool-check"
	RuleSourceCheckout   = "source-checkout"
	RuleRegistryLogin    = "registry-login"
	RuleComposeEdit      = "compose-edit"
	RuleImagePull        = "image-pull"
	RuleContainerUp      = "container-up"
	RuleContainerDown    = "container-down"
	RuleContainerRestart = "container-restart"
	RuleStatusPoll       = "status-poll"
	RuleNamespaceCreate  = "namespace-create"
	RuleRegistrySecret   = "registry-secret"
	RuleManifestApply    = "manifest-apply"
	RulePodDescribe      = "pod-describe"
	RuleRolloutRestart   = "rollout-restart"
	RuleCleanup          = "cleanup"
)

// Catalog is an immutable, ordered recognition table plus the inert-read command set used to
// discard false timeout evidence. A Catalog is safe for concurrent use.
type Catalog struct {
	rules []Rule
	inert map[string]struct{}
}

var defaultCatalog = mustDefault()

func mustDefault() *Catalog {
	c, err := Build(nil)
	if err != nil {
		panic("patterns: invalid built-in catalog: " + err.Error())
	}
	return c
}

// Default returns the built-in catalog covering git, docker-compose and kubectl transcripts.
func Default() *Catalog {
	return defaultCatalog
}

// Rules returns a copy of the rule table in priority order.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Rule returns the rule with the given name.
func (c *Catalog) Rule(name string) (Rule, bool) {
	for _, r := range c.rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Match returns the first rule whose predicate accepts the entry.
func (c *Catalog) Match(entry types.LogEntry) (Rule, bool) {
	for _, r := range c.rules {
		if r.Match(entry) {
			return r, true
		}
	}
	return Rule{}, false
}

// IsInertRead reports whether a command only reads and prints, such as dumping a config file.
// Failure words in the output of an inert read are content, not evidence.
func (c *Catalog) IsInertRead(command string) bool {
	return isInertRead(command, c.inert)
}

// InertCommands returns the inert program names, sorted.
func (c *Catalog) InertCommands() []string {
	out := lo.Keys(c.inert)
	sort.Strings(out)
	return out
}

// IsInertRead checks a command against the built-in inert command set.
func IsInertRead(command string) bool {
	return defaultCatalog.IsInertRead(command)
}

var (
	composeFile  = regexp.MustCompile(`compose[\w.-]*\.ya?ml`)
	// A redirect counts as an edit only when it writes to a compose file, so 2>&1 and
	// >/dev/null do not.
	editsFile    = regexp.MustCompile(`\b(?:sed|yq|tee|cp|mv|envsubst)\b|>>?\s*\S*compose[\w.-]*\.ya?ml`)
	manifestFile = regexp.MustCompile(`\.(?:ya?ml|json)\b|manifest`)
	tempDir      = regexp.MustCompile(`/tmp\b|/var/tmp\b|\$\{?tmpdir\}?|\btmp\.`)
)

func defaultRules(inertRead func(string) bool) []Rule {
	isInert := func(entry types.LogEntry) bool { return inertRead(entry.Command) }

	return []Rule{
		{
			Name:  RuleManifestDump,
			Label: "Read manifests",
			Kind:  KindInspect,
			Match: All(isInert, CommandMatches(manifestFile)),
		},
		{
			Name:  RuleToolCheck,
			Label: "Check deployment tools",
			Kind:  KindGeneric,
			Match: CommandMatches(regexp.MustCompile(
				`^(?:which|command -v|type|hash) (?:git|docker|docker-compose|kubectl|helm)\b|\b(?:git|docker|docker-compose|kubectl|helm) (?:--version|version|-v)\b`)),
		},
		{
			Name:     RuleSourceCheckout,
			Label:    "Download source code",
			Kind:     KindGeneric,
			Critical: true,
			Match:    CommandMatches(regexp.MustCompile(`\bgit (?:-c \S+ )*(?:clone|pull|fetch|checkout|reset --hard)\b`)),
		},
		{
			Name:     RuleRegistryLogin,
			Label:    "Log in to registry",
			Kind:     KindGeneric,
			Critical: true,
			Match:    CommandMatches(regexp.MustCompile(`\b(?:docker|podman|helm registry) login\b`)),
		},
		{
			Name:     RuleComposeEdit,
			Label:    "Update compose file",
			Kind:     KindGeneric,
			Critical: true,
			Match:    All(CommandMatches(composeFile), CommandMatches(editsFile)),
		},
		{
			Name:     RuleImagePull,
			Label:    "Pull images",
			Kind:     KindGeneric,
			Critical: true,
			Match:    CommandMatches(regexp.MustCompile(`\b(?:docker|podman|crictl) pull\b|\bdocker[- ]compose\b.*\bpull\b`)),
		},
		{
			Name:     RuleContainerUp,
			Label:    "Start containers",
			Kind:     KindGeneric,
			Critical: true,
			Match:    CommandMatches(regexp.MustCompile(`\bdocker[- ]compose\b.* up\b|\bdocker (?:run|start)\b`)),
		},
		{
			Name:  RuleContainerDown,
			Label: "Stop containers",
			Kind:  KindGeneric,
			Match: CommandMatches(regexp.MustCompile(`\bdocker[- ]compose\b.* (?:down|stop|rm)\b|\bdocker (?:stop|rm)\b`)),
		},
		{
			Name:     RuleContainerRestart,
			Label:    "Restart containers",
			Kind:     KindGeneric,
			Critical: true,
			Match:    CommandMatches(regexp.MustCompile(`\bdocker[- ]compose\b.* restart\b|\bdocker restart\b`)),
		},
		{
			Name:  RuleStatusPoll,
			Label: "Check service status",
			Kind:  KindStatusPoll,
			Match: CommandMatches(regexp.MustCompile(
				`\bdocker[- ]compose\b.* ps\b|\bdocker ps\b|\bkubectl\b.*\b(?:get (?:pods?|po|deploy(?:ments?)?|svc|services?|all)|rollout status)\b`)),
		},
		{
			Name:     RuleNamespaceCreate,
			Label:    "Create namespace",
			Kind:     KindIdempotent,
			Critical: true,
			Match:    CommandMatches(regexp.MustCompile(`\bkubectl\b.*\bcreate (?:namespace|ns)\b`)),
		},
		{
			Name:     RuleRegistrySecret,
			Label:    "Create registry secret",
			Kind:     KindIdempotent,
			Critical: true,
			Match:    CommandMatches(regexp.MustCompile(`\bkubectl\b.*\bcreate secret docker-registry\b`)),
		},
		{
			Name:  RuleManifestApply,
			Label: "Apply manifests",
			Kind:  KindManifestApply,
			Match: All(CommandMatches(regexp.MustCompile(`\bkubectl\b.*\bapply\b`)), CommandMatches(tempDir)),
		},
		{
			Name:  RulePodDescribe,
			Label: "Inspect pods",
			Kind:  KindImageScan,
			Match: CommandMatches(regexp.MustCompile(`\bkubectl\b.*\bdescribe (?:pods?|po)\b`)),
		},
		{
			Name:     RuleRolloutRestart,
			Label:    "Restart deployment",
			Kind:     KindGeneric,
			Critical: true,
			Match:    CommandMatches(regexp.MustCompile(`\bkubectl\b.*\brollout restart\b`)),
		},
		{
			Name:  RuleCleanup,
			Label: "Clean up workspace",
			Kind:  KindBestEffort,
			Match: CommandMatches(regexp.MustCompile(`\brm -(?:rf|fr|r|f)\b|\bdocker (?:system|image|container|volume) prune\b`)),
		},
	}
}
