package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/reflow-dev/reflow/pkg/view"
)

// Page describes a complete HTML document around a rendered body.
type Page struct {
	Title string
	Lang  string
	Meta  map[string]string
	Body  any // view node for the document body

	// StateSnapshot, when non-nil, is embedded as a JSON script tag so a
	// client can hydrate its state tree from server-computed values.
	StateSnapshot []byte
}

// StateScriptID is the id of the embedded hydration snapshot script tag.
const StateScriptID = "reflow-state"

// RenderPage renders a full document. The body renders in auto mode; the
// returned Result is pending when the body escalated.
func (r *Renderer) RenderPage(page Page) (*Result, error) {
	body, err := r.ToString(page.Body)
	if err != nil {
		return nil, err
	}

	if body.Sync() {
		return syncResult(r.assemblePage(page, body.Value())), nil
	}

	f := view.NewFuture[string]()
	go func() {
		s, err := body.Await(context.Background())
		if err != nil {
			s = errorBlock(err.Error())
		}
		f.Resolve(r.assemblePage(page, s))
	}()
	return pendingResult(f), nil
}

// assemblePage wraps the rendered body in the document shell.
func (r *Renderer) assemblePage(page Page, body string) string {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	fmt.Fprintf(&sb, `<html lang="%s">`+"\n", EscapeAttr(lang))

	sb.WriteString("<head>\n")
	sb.WriteString(`<meta charset="utf-8">` + "\n")
	if page.Title != "" {
		fmt.Fprintf(&sb, "<title>%s</title>\n", EscapeHTML(page.Title))
	}
	for _, m := range metaPairs(page.Meta) {
		fmt.Fprintf(&sb, `<meta name="%s" content="%s">`+"\n", EscapeAttr(m[0]), EscapeAttr(m[1]))
	}
	sb.WriteString("</head>\n<body>\n")

	sb.WriteString(body)

	if page.StateSnapshot != nil {
		fmt.Fprintf(&sb, "\n"+`<script type="application/json" id="%s">%s</script>`, StateScriptID, escapeScriptJSON(page.StateSnapshot))
	}

	sb.WriteString("\n</body>\n</html>\n")
	return sb.String()
}

// WritePage renders a page and streams it to w, flushing when the writer
// supports it for faster time-to-first-byte.
func (r *Renderer) WritePage(w io.Writer, page Page) error {
	result, err := r.RenderPage(page)
	if err != nil {
		return err
	}
	s, err := result.Await(context.Background())
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// escapeScriptJSON keeps embedded JSON from terminating the script tag.
func escapeScriptJSON(data []byte) string {
	return strings.ReplaceAll(string(data), "</", `<\/`)
}

func metaPairs(meta map[string]string) [][2]string {
	pairs := make([][2]string, 0, len(meta))
	for name, content := range meta {
		pairs = append(pairs, [2]string{name, content})
	}
	// Insertion order of maps is random; sort for deterministic documents.
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j][0] < pairs[j-1][0]; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
	return pairs
}
