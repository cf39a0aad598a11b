package view

import "strings"

// ParseSymptoms splits comma-separated input into trimmed, non-empty symptoms.
func ParseSymptoms(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
