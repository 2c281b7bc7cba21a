package config

import (
	"fmt"
	"os"
	"strings"
)

// SubstituteEnvVars replaces environment variable references in YAML content.
// Supported forms:
//   - ${VAR}            basic substitution (empty string if unset)
//   - ${VAR:-default}   default when VAR is empty or unset
//   - ${VAR:?message}   error when VAR is empty or unset
//   - $${VAR}           escape, yields the literal ${VAR}
func SubstituteEnvVars(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	var substErr error

	for i := 0; i < len(content); {
		if content[i] != '$' {
			out.WriteByte(content[i])
			i++
			continue
		}

		// Escaped form: $${VAR} -> literal ${VAR}
		if strings.HasPrefix(content[i:], "$${") {
			end := strings.Index(content[i+3:], "}")
			if end == -1 {
				out.WriteString(content[i:])
				break
			}
			out.WriteString(content[i+1 : i+3+end+1])
			i += 3 + end + 1
			continue
		}

		if !strings.HasPrefix(content[i:], "${") {
			out.WriteByte(content[i])
			i++
			continue
		}

		end := strings.Index(content[i+2:], "}")
		if end == -1 {
			out.WriteByte(content[i])
			i++
			continue
		}

		expr := content[i+2 : i+2+end]
		i += 2 + end + 1

		value, err := expandVar(expr)
		if err != nil && substErr == nil {
			substErr = err
		}
		out.WriteString(value)
	}

	return out.String(), substErr
}

// expandVar resolves a single ${...} expression body.
func expandVar(expr string) (string, error) {
	if name, msg, ok := strings.Cut(expr, ":?"); ok {
		name = strings.TrimSpace(name)
		value := os.Getenv(name)
		if value == "" {
			msg = strings.TrimSpace(msg)
			if msg == "" {
				msg = fmt.Sprintf("required environment variable %s is not set", name)
			}
			return "", fmt.Errorf("%s", msg)
		}
		return value, nil
	}

	if name, def, ok := strings.Cut(expr, ":-"); ok {
		name = strings.TrimSpace(name)
		if value := os.Getenv(name); value != "" {
			return value, nil
		}
		return strings.TrimSpace(def), nil
	}

	return os.Getenv(expr), nil
}
