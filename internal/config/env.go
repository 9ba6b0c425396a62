package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var bracketPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*|:\?[^}]*)?\}`)

// ExpandEnv expands environment variables in a configuration file.
// Supported patterns:
//   - ${VAR} - the value of VAR, empty when unset
//   - ${VAR:-default} - VAR or "default" if unset or empty
//   - ${VAR:?message} - fails if VAR is unset or empty
func ExpandEnv(input string) (string, error) {
	var missing []string

	result := bracketPattern.ReplaceAllStringFunc(input, func(match string) string {
		inner := match[2 : len(match)-1]

		parts := strings.SplitN(inner, ":", 2)
		name := parts[0]
		value, exists := os.LookupEnv(name)
		if len(parts) == 1 {
			return value
		}

		modifier := parts[1]
		switch {
		case strings.HasPrefix(modifier, "-"):
			if !exists || value == "" {
				return modifier[1:]
			}
		case strings.HasPrefix(modifier, "?"):
			if !exists || value == "" {
				missing = append(missing, fmt.Sprintf("%s: %s", name, modifier[1:]))
				return match
			}
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingEnvVar, strings.Join(missing, ", "))
	}
	return result, nil
}
