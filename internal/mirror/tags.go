// File path: internal/mirror/tags.go
package mirror

import "strings"

// NormalizeTags flattens tag input into an order-preserving, deduplicated
// set of trimmed, non-empty strings. Each element may itself be a
// comma-separated list, so a pre-split slice and a raw "a, b,c" string
// normalize identically.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		for _, part := range strings.Split(raw, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if _, ok := seen[trimmed]; ok {
				continue
			}
			seen[trimmed] = struct{}{}
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ParseTagString normalizes a comma-separated tag string.
func ParseTagString(raw string) []string {
	return NormalizeTags([]string{raw})
}

// SerializeTags renders normalized tags into the deterministic replica
// column format.
func SerializeTags(tags []string) string {
	return strings.Join(tags, ", ")
}
