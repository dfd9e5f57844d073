package placeholder

import (
	"fmt"
	"regexp"
	"strings"
)

// bracketPattern matches `[Label]` and `$[Label]`. The optional dollar sign
// is consumed together with the brackets.
var bracketPattern = regexp.MustCompile(`\$?\[([^\]]+)\]`)

// Convert rewrites bracket placeholders into `{{ Label }}` tokens. The label
// is trimmed and inner spaces become underscores. Nested brackets and labels
// that normalize to the same key are not detected.
func Convert(text string) string {
	return bracketPattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := bracketPattern.FindStringSubmatch(match)
		return Token(Normalize(sub[1]))
	})
}

// Normalize turns a raw bracket label into a field name.
func Normalize(label string) string {
	return strings.ReplaceAll(strings.TrimSpace(label), " ", "_")
}

// Token formats a field name as a template token.
func Token(name string) string {
	return fmt.Sprintf("{{ %s }}", name)
}
