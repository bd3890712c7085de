// Package placeholder substitutes {{key}} tokens in template content.
package placeholder

import (
	"regexp"
	"strings"
)

// A token is "{{", one or more characters other than "}", then "}}".
var tokenRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Render replaces every {{key}} in content with vars[key] in a single pass.
// Keys are trimmed and matched case-sensitively. Tokens whose key is absent
// from vars are kept verbatim, and substituted values are never rescanned.
func Render(content string, vars map[string]string) string {
	if content == "" || len(vars) == 0 {
		return content
	}
	return tokenRe.ReplaceAllStringFunc(content, func(tok string) string {
		key := strings.TrimSpace(tok[2 : len(tok)-2])
		if v, ok := vars[key]; ok {
			return v
		}
		return tok
	})
}

// Extract returns the distinct trimmed keys referenced in content, in order of first use.
func Extract(content string) []string {
	matches := tokenRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.TrimSpace(m[1])
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
