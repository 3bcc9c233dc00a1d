package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// commonDefaultMistakes maps misspelled SQL builtins to their real spelling.
var commonDefaultMistakes = map[string]string{
	"CURRENT TIMESTAMP": "CURRENT_TIMESTAMP",
	"CURRENT TIME":      "CURRENT_TIME",
	"CURRENT DATE":      "CURRENT_DATE",
	"NOW ()":            "NOW()",
	"GEN RANDOM UUID":   "gen_random_uuid()",
}

var defaultKeywords = map[string]bool{
	"NULL": true, "TRUE": true, "FALSE": true,
	"CURRENT_TIMESTAMP": true, "CURRENT_TIME": true, "CURRENT_DATE": true,
	"LOCALTIMESTAMP": true, "LOCALTIME": true,
}

// ValidateDefaultValue checks that a default(...) expression is plausible SQL.
func ValidateDefaultValue(defaultVal string) error {
	trimmed := strings.TrimSpace(defaultVal)
	if trimmed == "" {
		return fmt.Errorf("invalid DEFAULT value: empty expression")
	}
	upper := strings.ToUpper(trimmed)

	for mistake, correct := range commonDefaultMistakes {
		if strings.Contains(upper, mistake) {
			return fmt.Errorf("invalid DEFAULT value %q: use %s instead of %s", defaultVal, correct, mistake)
		}
	}

	if defaultKeywords[upper] || strings.ContainsAny(trimmed, "('") {
		return nil
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return nil
	}

	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "now") || strings.Contains(lower, "random") || strings.Contains(lower, "uuid") {
		return fmt.Errorf("invalid DEFAULT value %q looks like a function but is missing parentheses, try default(%s())", defaultVal, trimmed)
	}

	return nil
}
