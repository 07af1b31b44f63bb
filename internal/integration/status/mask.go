package status

import "strings"

const maskToken = "****"

// maskKey redacts an API key, keeping any vendor prefix and the last four characters.
func maskKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	prefix, remainder := splitPrefix(trimmed)
	if len(remainder) <= 4 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-4:]
}

// splitPrefix separates "secret_token_" style prefixes at the last underscore or colon.
func splitPrefix(value string) (string, string) {
	cut := strings.LastIndexAny(value, "_:")
	if cut == -1 || cut == len(value)-1 {
		return "", value
	}
	return value[:cut+1], value[cut+1:]
}
