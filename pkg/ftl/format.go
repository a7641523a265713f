package ftl

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// formatNumber renders n the way `${n}` does: integral values without a
// decimal part, everything else with the shortest exact representation.
func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// formatNumberPattern implements `?string("...")` for numbers. Named formats
// are "computer", "c", "number", "currency" and "percent"; anything else is a
// decimal pattern like "#,##0.00" or "0.#", optionally with a literal prefix
// or suffix ("$#,##0.00", "0.0%").
func formatNumberPattern(n float64, pattern string) string {
	switch pattern {
	case "", "computer", "c":
		return formatNumber(n)
	case "number":
		return formatNumberPattern(n, "#,##0.###")
	case "currency":
		return formatNumberPattern(n, "$#,##0.00")
	case "percent":
		return formatNumberPattern(n, "#,##0%")
	}

	start := strings.IndexAny(pattern, "#0")
	if start < 0 {
		return pattern
	}
	end := strings.LastIndexAny(pattern, "#0") + 1
	prefix, body, suffix := pattern[:start], pattern[start:end], pattern[end:]
	if strings.Contains(suffix, "%") {
		n *= 100
	}

	intPart, fracPart, _ := strings.Cut(body, ".")
	minFrac := strings.Count(fracPart, "0")
	maxFrac := len(fracPart)
	grouping := strings.Contains(intPart, ",")
	minInt := strings.Count(intPart, "0")

	neg := n < 0
	s := strconv.FormatFloat(math.Abs(n), 'f', maxFrac, 64)
	whole, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")
	for len(frac) < minFrac {
		frac += "0"
	}
	for len(whole) < minInt {
		whole = "0" + whole
	}
	if minInt == 0 && whole == "0" && frac != "" {
		whole = ""
	}
	if grouping {
		whole = groupThousands(whole)
	}

	var b strings.Builder
	if neg && (whole != "0" || frac != "") {
		b.WriteByte('-')
	}
	b.WriteString(prefix)
	b.WriteString(whole)
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	b.WriteString(suffix)
	return b.String()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

var namedDateFormats = map[string]string{
	"iso":    "2006-01-02T15:04:05Z07:00",
	"short":  "1/2/06",
	"medium": "Jan 2, 2006",
	"long":   "January 2, 2006",
	"xs":     "2006-01-02T15:04:05Z07:00",
}

// javaLayout translates a java.text.SimpleDateFormat-style pattern
// ("yyyy-MM-dd HH:mm") into a Go time layout.
func javaLayout(pattern string) string {
	if layout, ok := namedDateFormats[pattern]; ok {
		return layout
	}

	var b strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		c := runes[i]
		if c == '\'' {
			j := i + 1
			for j < len(runes) && runes[j] != '\'' {
				j++
			}
			b.WriteString(string(runes[i+1 : min(j, len(runes))]))
			i = j + 1
			continue
		}
		j := i
		for j < len(runes) && runes[j] == c {
			j++
		}
		count := j - i
		b.WriteString(layoutToken(c, count))
		i = j
	}
	return b.String()
}

func layoutToken(c rune, count int) string {
	switch c {
	case 'y':
		if count == 2 {
			return "06"
		}
		return "2006"
	case 'M':
		switch {
		case count >= 4:
			return "January"
		case count == 3:
			return "Jan"
		case count == 2:
			return "01"
		}
		return "1"
	case 'd':
		if count >= 2 {
			return "02"
		}
		return "2"
	case 'E':
		if count >= 4 {
			return "Monday"
		}
		return "Mon"
	case 'H':
		return "15"
	case 'h':
		if count >= 2 {
			return "03"
		}
		return "3"
	case 'm':
		if count >= 2 {
			return "04"
		}
		return "4"
	case 's':
		if count >= 2 {
			return "05"
		}
		return "5"
	case 'S':
		return strings.Repeat("0", count)
	case 'a':
		return "PM"
	case 'z':
		return "MST"
	case 'Z', 'X':
		return "-0700"
	}
	return strings.Repeat(string(c), count)
}

func formatDatePattern(t time.Time, pattern string) string {
	return t.Format(javaLayout(pattern))
}

// parseDate parses s with a Java-style pattern; an empty pattern accepts ISO
// dates and date-times.
func parseDate(s, pattern string) (time.Time, error) {
	if pattern != "" {
		return time.Parse(javaLayout(pattern), s)
	}
	var lastErr error
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// looksLikeDatePattern reports whether a `?string(...)` argument is meant
// for dates rather than numbers.
func looksLikeDatePattern(p string) bool {
	if _, ok := namedDateFormats[p]; ok {
		return true
	}
	return strings.ContainsAny(p, "yMdHhms")
}

// booleanFormat splits a `?string("yes,no")` argument.
func booleanFormat(p string) (string, string, bool) {
	t, f, ok := strings.Cut(p, ",")
	return t, f, ok
}
