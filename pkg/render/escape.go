package render

import "strings"

// Entity tables for the two HTML contexts. Attribute values additionally
// encode whitespace control characters, which can split or terminate an
// attribute during parsing even inside quotes.
var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)

	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)
)

// EscapeHTML makes s safe to embed as element text.
func EscapeHTML(s string) string { return textEscaper.Replace(s) }

// EscapeAttr makes s safe to embed inside a quoted attribute value.
func EscapeAttr(s string) string { return attrEscaper.Replace(s) }
