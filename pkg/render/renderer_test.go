package render

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/reflow-dev/reflow/pkg/state"
	"github.com/reflow-dev/reflow/pkg/view"
)

func newTestRenderer(t *testing.T, opts ...Option) (*state.Store, *view.Registry, *Renderer) {
	t.Helper()
	s := state.New(nil)
	reg := view.NewRegistry()
	return s, reg, NewRenderer(s, reg, opts...)
}

func renderSync(t *testing.T, r *Renderer, v any) string {
	t.Helper()
	res, err := r.ToString(v)
	if err != nil {
		t.Fatalf("ToString: %v", err)
	}
	if !res.Sync() {
		t.Fatal("expected synchronous result")
	}
	return res.Value()
}

func TestRenderElement(t *testing.T) {
	_, _, r := newTestRenderer(t)

	got := renderSync(t, r, map[string]any{"div": map[string]any{
		"class": "card",
		"id":    "main",
		"text":  "hello",
	}})
	want := `<div class="card" id="main">hello</div>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEscaping(t *testing.T) {
	_, _, r := newTestRenderer(t)

	got := renderSync(t, r, map[string]any{"p": map[string]any{"text": "<b>&"}})
	want := `<p>&lt;b&gt;&amp;</p>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAttrEscaping(t *testing.T) {
	_, _, r := newTestRenderer(t)

	got := renderSync(t, r, map[string]any{"a": map[string]any{
		"href": `/x?a="1"&b='2'`,
	}})
	if !strings.Contains(got, `href="/x?a=&quot;1&quot;&amp;b=&#39;2&#39;"`) {
		t.Errorf("attr not escaped: %q", got)
	}
}

func TestBooleanAttrs(t *testing.T) {
	_, _, r := newTestRenderer(t)

	got := renderSync(t, r, map[string]any{"input": map[string]any{
		"disabled": true,
		"required": false,
		"type":     "text",
	}})
	want := `<input disabled type="text">`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDataAriaAlwaysValued(t *testing.T) {
	_, _, r := newTestRenderer(t)

	got := renderSync(t, r, map[string]any{"div": map[string]any{
		"data-open":   true,
		"aria-hidden": false,
	}})
	want := `<div aria-hidden="false" data-open="true"></div>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestClassShapes(t *testing.T) {
	_, _, r := newTestRenderer(t)

	cases := []struct {
		value any
		want  string
	}{
		{"a b", `class="a b"`},
		{[]string{"a", "b"}, `class="a b"`},
		{map[string]bool{"on": true, "off": false, "also": true}, `class="also on"`},
	}
	for _, c := range cases {
		got := renderSync(t, r, map[string]any{"div": map[string]any{"className": c.value}})
		if !strings.Contains(got, c.want) {
			t.Errorf("class %v rendered %q, want containing %q", c.value, got, c.want)
		}
	}
}

func TestStyleMapSorted(t *testing.T) {
	_, _, r := newTestRenderer(t)

	got := renderSync(t, r, map[string]any{"div": map[string]any{
		"style": map[string]any{"color": "red", "background": "blue"},
	}})
	want := `<div style="background:blue;color:red"></div>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestEventHandlersNotSerialized(t *testing.T) {
	_, _, r := newTestRenderer(t)

	got := renderSync(t, r, map[string]any{"button": map[string]any{
		"onclick": func() {},
		"text":    "go",
	}})
	want := `<button>go</button>`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReactiveFunctionEvaluated(t *testing.T) {
	s, _, r := newTestRenderer(t)
	s.Set("who", "world")

	got := renderSync(t, r, map[string]any{"span": map[string]any{
		"text": func() any { return s.Get("who", "") },
	}})
	if got != `<span>world</span>` {
		t.Errorf("got %q", got)
	}
}

func TestStaticChildren(t *testing.T) {
	_, _, r := newTestRenderer(t)

	got := renderSync(t, r, map[string]any{"ul": map[string]any{
		"children": []any{
			map[string]any{"li": map[string]any{"text": "1"}},
			map[string]any{"li": map[string]any{"text": "2"}},
		},
	}})
	if got != `<ul><li>1</li><li>2</li></ul>` {
		t.Errorf("got %q", got)
	}
}

func TestComponentSync(t *testing.T) {
	_, reg, r := newTestRenderer(t)
	reg.Register("Greeting", func(props view.Props, _ *view.Context) any {
		return map[string]any{"h1": map[string]any{"text": props["name"]}}
	})

	got := renderSync(t, r, map[string]any{"Greeting": map[string]any{"name": "Ada"}})
	if got != `<h1>Ada</h1>` {
		t.Errorf("got %q", got)
	}
}

func TestAsyncAutoDetection(t *testing.T) {
	_, reg, r := newTestRenderer(t)
	reg.Register("Async", func(view.Props, *view.Context) any {
		return view.Resolved[any](map[string]any{"span": map[string]any{"text": "ok"}})
	})
	reg.Register("Sync", func(view.Props, *view.Context) any {
		return map[string]any{"span": map[string]any{"text": "ok"}}
	})

	syncOut := renderSync(t, r, map[string]any{"Sync": map[string]any{}})

	res, err := r.ToString(map[string]any{"Async": map[string]any{}})
	if err != nil {
		t.Fatalf("ToString: %v", err)
	}
	if res.Sync() {
		t.Fatal("pending component result should escalate to async")
	}
	asyncOut, err := res.Await(context.Background())
	if err != nil {
		t.Fatalf("await: %v", err)
	}

	if asyncOut != syncOut || asyncOut != `<span>ok</span>` {
		t.Errorf("async output %q differs from sync output %q", asyncOut, syncOut)
	}
}

func TestRenderMethodComponent(t *testing.T) {
	_, reg, r := newTestRenderer(t)
	reg.Register("Widget", func(view.Props, *view.Context) any {
		return renderable{}
	})

	got := renderSync(t, r, map[string]any{"Widget": map[string]any{}})
	if got != `<em>widget</em>` {
		t.Errorf("got %q", got)
	}
}

type renderable struct{}

func (renderable) Render() any {
	return map[string]any{"em": map[string]any{"text": "widget"}}
}

func TestScalarComponentResult(t *testing.T) {
	_, reg, r := newTestRenderer(t)
	reg.Register("Plain", func(view.Props, *view.Context) any {
		return "just <text>"
	})

	got := renderSync(t, r, map[string]any{"Plain": map[string]any{}})
	if got != "just &lt;text&gt;" {
		t.Errorf("got %q", got)
	}
}

func TestComponentPanicContained(t *testing.T) {
	_, reg, r := newTestRenderer(t)
	reg.Register("Boom", func(view.Props, *view.Context) any {
		panic("kaput")
	})

	got := renderSync(t, r, map[string]any{"div": map[string]any{
		"children": []any{
			map[string]any{"Boom": map[string]any{}},
			map[string]any{"p": map[string]any{"text": "still here"}},
		},
	}})
	if !strings.Contains(got, `class="rf-error"`) {
		t.Errorf("expected inline error block, got %q", got)
	}
	if !strings.Contains(got, "<p>still here</p>") {
		t.Errorf("sibling markup lost: %q", got)
	}
}

func TestAsyncRejectionInline(t *testing.T) {
	_, reg, r := newTestRenderer(t)
	reg.Register("Failing", func(view.Props, *view.Context) any {
		return view.Rejected[any](errors.New("nope"))
	})

	res, err := r.ToString(map[string]any{"Failing": map[string]any{}})
	if err != nil {
		t.Fatalf("ToString: %v", err)
	}
	out, err := res.Await(context.Background())
	if err != nil {
		t.Fatalf("rejection must not propagate: %v", err)
	}
	if !strings.Contains(out, "nope") || !strings.Contains(out, "rf-error") {
		t.Errorf("expected inline rejection marker, got %q", out)
	}
}

func TestDepthGuard(t *testing.T) {
	_, reg, r := newTestRenderer(t, WithMaxDepth(10))
	reg.Register("Recurse", func(view.Props, *view.Context) any {
		return map[string]any{"div": map[string]any{
			"children": map[string]any{"Recurse": map[string]any{}},
		}}
	})

	got := renderSync(t, r, map[string]any{"Recurse": map[string]any{}})
	if !strings.Contains(got, "max depth exceeded") {
		t.Errorf("expected depth marker, got %q", got)
	}
	// The tree unwound cleanly: tags are balanced.
	if strings.Count(got, "<div") != strings.Count(got, "</div>") {
		t.Errorf("unbalanced markup after unwind: %q", got)
	}
}

func TestForcedSyncPendingDegrades(t *testing.T) {
	_, _, r := newTestRenderer(t)

	res, err := r.ToString(map[string]any{"div": map[string]any{
		"children": view.Resolved[any](map[string]any{"p": map[string]any{}}),
	}}, Options{Mode: ModeSync})
	if err != nil {
		t.Fatalf("ToString: %v", err)
	}
	if !strings.Contains(res.Value(), "rf-error") {
		t.Errorf("forced sync should degrade pending to marker, got %q", res.Value())
	}
}

func TestForcedAsyncTimeout(t *testing.T) {
	_, _, r := newTestRenderer(t)

	never := view.NewFuture[any]() // never resolves
	res, err := r.ToString(map[string]any{"div": map[string]any{
		"children": never,
	}}, Options{Mode: ModeAsync, Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("ToString: %v", err)
	}

	out, err := res.Await(context.Background())
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	// Either the outer race fires ("render timeout exceeded") or the walk
	// itself hits the deadline first; both degrade to an error block.
	if !strings.Contains(out, "rf-error") {
		t.Errorf("expected timeout error block, got %q", out)
	}
}

func TestVoidElements(t *testing.T) {
	_, _, r := newTestRenderer(t)

	got := renderSync(t, r, map[string]any{"br": map[string]any{}})
	if got != `<br>` {
		t.Errorf("got %q", got)
	}
}

func TestRenderPage(t *testing.T) {
	s, _, r := newTestRenderer(t)
	s.Set("title", "Home")

	snapshot, _ := s.Snapshot()
	res, err := r.RenderPage(Page{
		Title:         "Home",
		Body:          map[string]any{"main": map[string]any{"text": "welcome"}},
		StateSnapshot: snapshot,
	})
	if err != nil {
		t.Fatalf("RenderPage: %v", err)
	}
	out := res.Value()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Home</title>",
		"<main>welcome</main>",
		`id="reflow-state"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q:\n%s", want, out)
		}
	}
}
