// Copyright (C) 2026 Noldarim
// SPDX-License-Identifier: AGPL-3.0-or-later

package patterns

import (
	"regexp"
	"strings"

	"github.com/noldarim/opsdash/internal/pipeobs/types"
)

// imageLine matches "image: repo/app:tag" lines in manifests and "Image:  repo/app:tag" lines
// in pod descriptions. "Image ID:" lines do not match.
var imageLine = regexp.MustCompile(`(?im)^\s*(?:-\s*)?image:\s*["']?([^\s"'#]+)`)

// ScanImages returns image references found in output, in order of appearance.
// Duplicates are kept; callers decide uniqueness.
func ScanImages(output string) []string {
	var refs []string
	for _, m := range imageLine.FindAllStringSubmatch(output, -1) {
		if ref := strings.TrimSpace(m[1]); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// SplitImage splits an image reference on its last colon into name and tag.
// A colon that belongs to a registry port ("registry:5000/app") is not a tag separator;
// references without a tag get "latest". Digest references split on "@".
func SplitImage(ref string) types.ImageRef {
	ref = strings.TrimSpace(ref)
	if at := strings.LastIndex(ref, "@"); at >= 0 {
		return types.ImageRef{Name: ref[:at], Tag: ref[at+1:], FullPath: ref}
	}
	colon := strings.LastIndex(ref, ":")
	if colon < 0 || colon < strings.LastIndex(ref, "/") {
		return types.ImageRef{Name: ref, Tag: "latest", FullPath: ref}
	}
	return types.ImageRef{Name: ref[:colon], Tag: ref[colon+1:], FullPath: ref}
}
