package extractor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MaxSerializeDepth is the deepest level Serialize descends into.
const MaxSerializeDepth = 10

// Serialize renders a tree as indented JSON-like text. Content nested deeper
// than MaxSerializeDepth is elided as "..." and sequences always print as
// [] because only their shape matters for a variable tree.
func Serialize(tree *Tree) string {
	var b strings.Builder
	writeValue(&b, tree, 0)
	return b.String()
}

func writeValue(b *strings.Builder, v any, depth int) {
	if depth > MaxSerializeDepth {
		b.WriteString(`"..."`)
		return
	}

	switch x := v.(type) {
	case *Tree:
		if x == nil || x.Len() == 0 {
			b.WriteString("{}")
			return
		}
		indent := strings.Repeat("  ", depth)
		next := indent + "  "
		b.WriteString("{\n")
		for i, k := range x.keys {
			b.WriteString(next)
			b.WriteString(quote(k))
			b.WriteString(": ")
			writeValue(b, x.values[k], depth+1)
			if i < len(x.keys)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(indent)
		b.WriteByte('}')
	case []any:
		b.WriteString("[]")
	case string:
		b.WriteString(quote(x))
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case int:
		b.WriteString(strconv.Itoa(x))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case float64:
		b.WriteString(formatFloat(x))
	case time.Time:
		b.WriteString(quote(x.Format(time.DateOnly)))
	case nil:
		b.WriteString(`""`)
	default:
		b.WriteString(quote(fmt.Sprint(x)))
	}
}

// formatFloat keeps a trailing ".0" on integral values so 0.0 and 0 stay
// distinguishable.
func formatFloat(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func quote(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(out)
}
