package envsetup

import "strings"

// sensitivePatterns are substrings that indicate a value should be redacted.
var sensitivePatterns = []string{"TOKEN", "SECRET", "PASSWORD", "KEY", "CREDENTIAL"}

// RedactValue returns a redacted version of value if the key name contains
// a sensitive pattern (case-insensitive substring match).
// Values with 4+ chars show the first 4 chars + "***".
// Values with fewer than 4 chars are fully redacted as "***".
func RedactValue(key, value string) string {
	upper := strings.ToUpper(key)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(upper, pattern) {
			if len(value) >= 4 {
				return value[:4] + "***"
			}
			return "***"
		}
	}
	return value
}

// RedactEnv renders env entries with sensitive values redacted.
func RedactEnv(env []string) []string {
	out := make([]string, 0, len(env))
	for _, e := range env {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			out = append(out, e)
			continue
		}
		out = append(out, key+"="+RedactValue(key, value))
	}
	return out
}
