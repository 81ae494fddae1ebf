package activity

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Render substitutes {name} tokens in template with values from the
// field map. It always returns the best-effort result; when a token has
// no value it is left in place and an error names the missing fields so
// callers can fall back to a default.
func Render(template string, fields map[string]string) (string, error) {
	var missing []string

	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1 : len(token)-1]
		value, ok := fields[name]
		if !ok {
			missing = append(missing, name)
			return token
		}
		return value
	})

	if len(missing) > 0 {
		return rendered, fmt.Errorf("unresolved placeholders: %s", strings.Join(missing, ", "))
	}
	return rendered, nil
}
