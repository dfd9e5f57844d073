package placeholder

import (
	"regexp"
	"strings"
)

// TokenPattern matches `{{ name }}` tokens. Group 1 is the untrimmed name.
var TokenPattern = regexp.MustCompile(`\{\{\s*([^\}]+)\s*\}\}`)

// Extract returns the unique field names found in texts, in order of first
// occurrence.
func Extract(texts ...string) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)

	for _, text := range texts {
		for _, m := range TokenPattern.FindAllStringSubmatch(text, -1) {
			name := strings.TrimSpace(m[1])
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	return names
}

// Unfilled returns the placeholders that have no key in answers, preserving
// the order of placeholders. An empty answer value still counts as filled.
func Unfilled(placeholders []string, answers map[string]string) []string {
	out := make([]string, 0, len(placeholders))
	for _, ph := range placeholders {
		if _, ok := answers[ph]; !ok {
			out = append(out, ph)
		}
	}
	return out
}
