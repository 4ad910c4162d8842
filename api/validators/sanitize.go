package validators

import "strings"

// SanitizeString trims input and truncates it to maxLen bytes when maxLen > 0.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}
