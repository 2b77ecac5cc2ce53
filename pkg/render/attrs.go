package render

import (
	"fmt"
	"sort"
	"strings"
)

// truthy reports whether a value counts as set for boolean-attribute
// purposes.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}

// attrString converts an attribute value to its serialized form.
func attrString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// classString joins a class value: a plain string passes through, a string
// slice joins with single spaces, and a truthy-keyed map contributes its
// true keys in sorted order.
func classString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, " ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			if s := attrString(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case map[string]bool:
		keys := make([]string, 0, len(t))
		for k, on := range t {
			if on {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		return strings.Join(keys, " ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k, cond := range t {
			if truthy(cond) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		return strings.Join(keys, " ")
	default:
		return attrString(v)
	}
}

// styleString serializes a style mapping as "prop:value" pairs joined by
// semicolons, in sorted property order for deterministic output.
func styleString(v any) string {
	var props map[string]string
	switch t := v.(type) {
	case map[string]string:
		props = t
	case map[string]any:
		props = make(map[string]string, len(t))
		for k, val := range t {
			props[k] = attrString(val)
		}
	case string:
		return t
	default:
		return ""
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(props[k])
	}
	return sb.String()
}

// emitAttr writes one resolved attribute following the emission rules:
// boolean attributes emit the bare name only when truthy, data-/aria-
// attributes always carry a value, class/className values are joined with
// single spaces, and unknown keys emit name="escaped(value)".
func emitAttr(sb *strings.Builder, key string, v any) {
	switch {
	case key == "class" || key == "className":
		if s := classString(v); s != "" {
			fmt.Fprintf(sb, ` class="%s"`, EscapeAttr(s))
		}
	case strings.HasPrefix(key, "data-") || strings.HasPrefix(key, "aria-"):
		fmt.Fprintf(sb, ` %s="%s"`, key, EscapeAttr(attrString(v)))
	case isBooleanAttr(key):
		if truthy(v) {
			sb.WriteByte(' ')
			sb.WriteString(key)
		}
	default:
		if v == nil {
			return
		}
		if b, ok := v.(bool); ok && !b {
			return
		}
		fmt.Fprintf(sb, ` %s="%s"`, key, EscapeAttr(attrString(v)))
	}
}
