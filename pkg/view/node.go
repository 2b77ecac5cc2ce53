package view

import (
	"fmt"
	"strings"

	"github.com/reflow-dev/reflow/internal/errors"
)

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement   Kind = iota // <div>, <button>, etc.
	KindComponent             // Registered component invocation
	KindText                  // Plain text node
	KindFragment              // Sibling sequence without a wrapper
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindComponent:
		return "Component"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	default:
		return "Unknown"
	}
}

// Props holds a node's properties: attributes, reactive binding functions,
// event handlers, and the special keys "text", "children", "style" and "key".
type Props map[string]any

// Key returns the explicit reconciliation key, if any.
func (p Props) Key() string {
	if k, ok := p["key"].(string); ok {
		return k
	}
	return ""
}

// IsEventKey reports whether a prop key names an event handler ("onclick",
// "oninput", ...). Event handler values are plain callables and are never
// auto-evaluated or serialized.
func IsEventKey(key string) bool {
	return len(key) > 2 && strings.HasPrefix(key, "on") && key[2] >= 'a' && key[2] <= 'z'
}

// Node is the parsed view node: the single-key tag→props wire format
// resolved once into an explicit tagged variant, so consumers never
// re-inspect map keys.
type Node struct {
	Kind     Kind
	Tag      string  // element tag or component name
	Props    Props   // nil for text and fragment nodes
	Children []*Node // statically known children
	Text     string  // for KindText
}

// Key returns the node's reconciliation key, empty when none was given.
func (n *Node) Key() string {
	if n == nil || n.Props == nil {
		return ""
	}
	return n.Props.Key()
}

// Parse ingests the wire format into a Node tree:
//
//   - a single-key map {tag: props} becomes an Element (or a Component when
//     reg knows the tag)
//   - an ordered sequence of view nodes becomes a Fragment
//   - a string or other scalar becomes a Text node
//   - a *Node passes through untouched
//   - a bare Pending is rejected: asynchronous values resolve through the
//     renderer slots (text, children, component results), never at
//     ingestion
//
// Dynamic children (functions, Pending values) stay in Props["children"]
// and Children holds only the statically known ones.
func Parse(v any, reg *Registry) (*Node, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *Node:
		return t, nil
	case string:
		return &Node{Kind: KindText, Text: t}, nil
	case map[string]any:
		return parseTagged(t, reg)
	case []any:
		return parseSiblings(t, reg)
	case []map[string]any:
		anys := make([]any, len(t))
		for i, m := range t {
			anys[i] = m
		}
		return parseSiblings(anys, reg)
	case Pending:
		return nil, errors.Newf(errors.CodeParseFailed, errors.CategoryView,
			"asynchronous value cannot be parsed directly; bind it to a text, children, or component slot")
	default:
		// Scalars coerce to text.
		return &Node{Kind: KindText, Text: fmt.Sprint(t)}, nil
	}
}

func parseTagged(m map[string]any, reg *Registry) (*Node, error) {
	if len(m) != 1 {
		return nil, errors.Newf(errors.CodeParseFailed, errors.CategoryView,
			"view node must have exactly one key, got %d", len(m))
	}

	var tag string
	var raw any
	for k, v := range m {
		tag, raw = k, v
	}

	props, _ := raw.(map[string]any)
	if props == nil && raw != nil {
		return nil, errors.Newf(errors.CodeParseFailed, errors.CategoryView,
			"view node %q: props must be a mapping, got %T", tag, raw)
	}

	node := &Node{Kind: KindElement, Tag: tag, Props: Props(props)}
	if node.Props == nil {
		node.Props = Props{}
	}
	if reg != nil && reg.Has(tag) {
		node.Kind = KindComponent
		return node, nil
	}

	// Lift statically known children now; leave dynamic ones for the
	// renderer to evaluate.
	if raw, ok := node.Props["children"]; ok {
		switch raw.(type) {
		case func() any, Pending:
			// dynamic, resolved later
		default:
			child, err := Parse(raw, reg)
			if err != nil {
				return nil, err
			}
			if child != nil {
				if child.Kind == KindFragment {
					node.Children = child.Children
				} else {
					node.Children = []*Node{child}
				}
			}
			delete(node.Props, "children")
		}
	}

	return node, nil
}

func parseSiblings(items []any, reg *Registry) (*Node, error) {
	frag := &Node{Kind: KindFragment}
	for _, item := range items {
		child, err := Parse(item, reg)
		if err != nil {
			return nil, err
		}
		if child != nil {
			frag.Children = append(frag.Children, child)
		}
	}
	return frag, nil
}
