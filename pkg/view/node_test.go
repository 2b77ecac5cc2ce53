package view

import (
	"context"
	"errors"
	"testing"

	rferrors "github.com/reflow-dev/reflow/internal/errors"
)

func TestParseElement(t *testing.T) {
	n, err := Parse(map[string]any{"div": map[string]any{
		"class": "card",
		"text":  "hello",
	}}, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.Kind != KindElement || n.Tag != "div" {
		t.Errorf("expected div element, got %v %q", n.Kind, n.Tag)
	}
	if n.Props["class"] != "card" {
		t.Errorf("props lost: %v", n.Props)
	}
}

func TestParseRejectsMultiKey(t *testing.T) {
	_, err := Parse(map[string]any{"div": nil, "span": nil}, nil)
	if err == nil {
		t.Fatal("expected error for multi-key view node")
	}
	if code := rferrors.CodeOf(err); code != rferrors.CodeParseFailed {
		t.Errorf("code = %q, want %q", code, rferrors.CodeParseFailed)
	}
}

func TestParseRejectsBarePending(t *testing.T) {
	_, err := Parse(Resolved[any]("later"), nil)
	if err == nil {
		t.Fatal("expected error for a bare async value")
	}
	if code := rferrors.CodeOf(err); code != rferrors.CodeParseFailed {
		t.Errorf("code = %q, want %q", code, rferrors.CodeParseFailed)
	}

	// Also inside a sibling list, where it would otherwise coerce to text.
	_, err = Parse([]any{
		map[string]any{"div": map[string]any{}},
		Resolved[any]("later"),
	}, nil)
	if err == nil {
		t.Fatal("expected error for an async sibling")
	}
}

func TestParseStaticChildrenLifted(t *testing.T) {
	n, err := Parse(map[string]any{"ul": map[string]any{
		"children": []any{
			map[string]any{"li": map[string]any{"text": "1"}},
			map[string]any{"li": map[string]any{"text": "2"}},
		},
	}}, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(n.Children) != 2 {
		t.Fatalf("expected 2 lifted children, got %d", len(n.Children))
	}
	if _, still := n.Props["children"]; still {
		t.Error("static children should be removed from props")
	}
	if n.Children[0].Tag != "li" {
		t.Errorf("unexpected child %+v", n.Children[0])
	}
}

func TestParseDynamicChildrenStay(t *testing.T) {
	fn := func() any { return nil }
	n, err := Parse(map[string]any{"div": map[string]any{"children": fn}}, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(n.Children) != 0 {
		t.Error("dynamic children must not be lifted at parse time")
	}
	if _, ok := n.Props["children"].(func() any); !ok {
		t.Error("dynamic children prop lost")
	}
}

func TestParseComponentDispatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Counter", func(props Props, ctx *Context) any { return nil })

	n, err := Parse(map[string]any{"Counter": map[string]any{"start": 1}}, reg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.Kind != KindComponent {
		t.Errorf("registered name should parse as component, got %v", n.Kind)
	}
}

func TestParseScalars(t *testing.T) {
	n, _ := Parse("plain", nil)
	if n.Kind != KindText || n.Text != "plain" {
		t.Errorf("string should parse to text node, got %+v", n)
	}

	n, _ = Parse(42, nil)
	if n.Kind != KindText || n.Text != "42" {
		t.Errorf("scalar should coerce to text, got %+v", n)
	}
}

func TestParseSiblingSequence(t *testing.T) {
	n, err := Parse([]any{
		map[string]any{"span": map[string]any{"text": "a"}},
		"b",
	}, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.Kind != KindFragment || len(n.Children) != 2 {
		t.Fatalf("expected fragment of 2, got %+v", n)
	}
}

func TestIsEventKey(t *testing.T) {
	cases := map[string]bool{
		"onclick": true,
		"oninput": true,
		"on":      false,
		"once":    true, // matches on[a-z]..., callers treat it as a handler key
		"online":  true,
		"onClick": false,
		"class":   false,
	}
	for key, want := range cases {
		if got := IsEventKey(key); got != want {
			t.Errorf("IsEventKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestFutureResolve(t *testing.T) {
	f := NewFuture[string]()
	go f.Resolve("ok")

	v, err := f.Await(context.Background())
	if err != nil || v != "ok" {
		t.Errorf("await = %v, %v", v, err)
	}

	// Second resolve is ignored
	f.Resolve("other")
	v, _ = f.Await(context.Background())
	if v != "ok" {
		t.Errorf("future reassigned: %v", v)
	}
}

func TestFutureReject(t *testing.T) {
	want := errors.New("boom")
	f := Rejected[int](want)

	_, err := f.Await(context.Background())
	if !errors.Is(err, want) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestGoFuture(t *testing.T) {
	f := Go(func() (int, error) { return 7, nil })
	v, err := f.Await(context.Background())
	if err != nil || v != 7 {
		t.Errorf("Go future = %v, %v", v, err)
	}
}

func TestIsPending(t *testing.T) {
	if !IsPending(Resolved("x")) {
		t.Error("Future should be Pending")
	}
	if IsPending("x") || IsPending(nil) {
		t.Error("plain values are not Pending")
	}
}
