package commands

import "encoding/json"

// marshalJSONOrFallback renders v for --json output. It always returns a
// valid JSON document, even if v cannot be marshaled.
func marshalJSONOrFallback(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err == nil {
		return string(data) + "\n"
	}

	fallback, fallbackErr := json.Marshal(map[string]string{
		"error": "failed to marshal JSON output: " + err.Error(),
	})
	if fallbackErr != nil {
		return "{}\n"
	}
	return string(fallback) + "\n"
}
