package extractor

import "strings"

// DefaultValue returns the placeholder stored at a tree leaf named name.
// Rules match on the lower-cased name and the first match wins. They are
// substring matches, so "list" and "visible" count as boolean-looking.
func DefaultValue(name string) any {
	n := strings.ToLower(name)
	switch {
	case containsAny(n, "is", "has", "enable"):
		return false
	case containsAny(n, "count", "amount", "total"):
		return 0
	case containsAny(n, "rate", "price"):
		return 0.0
	case containsAny(n, "list", "items") || strings.HasSuffix(n, "s"):
		return []any{}
	case containsAny(n, "date", "time"):
		return "2024-01-01"
	default:
		return ""
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
