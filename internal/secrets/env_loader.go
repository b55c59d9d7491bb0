package secrets

import (
	"os"
	"strings"
)

// EnvLoader returns a Loader that collects every environment variable whose
// name starts with prefix. The secret name is the rest of the variable name,
// lowercased: with prefix "MAESTRO_SECRET_", the variable
// MAESTRO_SECRET_MCP_API_KEY loads as "mcp_api_key". Empty values are
// skipped.
func EnvLoader(prefix string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string)
		for _, kv := range os.Environ() {
			name, val, ok := strings.Cut(kv, "=")
			if !ok || val == "" || !strings.HasPrefix(name, prefix) {
				continue
			}
			key := strings.ToLower(strings.TrimPrefix(name, prefix))
			if key == "" {
				continue
			}
			vals[key] = val
		}
		return vals, nil
	}
}
