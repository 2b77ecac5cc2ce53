package dom

import "github.com/reflow-dev/reflow/pkg/view"

// reconcileChildren matches the parent's current children against a new
// sibling list by reconciliation key. Matches keep their element identity
// and attached subscribers: they are detached and reinserted, with only
// their statically known props refreshed. Unmatched old children are fully
// cleaned up, reset, and pushed to the recycle pool. The parent's child
// list is swapped atomically at the end.
func (r *Renderer) reconcileChildren(parent *Element, nodes []*view.Node) {
	old := append([]*Element(nil), parent.Children()...)

	oldByKey := make(map[string]*Element, len(old))
	for _, c := range old {
		if c.cacheKey != "" {
			oldByKey[c.cacheKey] = c
		}
	}

	// Decide matches up front so unmatched old children reach the recycle
	// pool before any new element is built: a fresh createElement in the
	// same pass may then receive a recycled instance.
	matched := make(map[string]*Element, len(old))
	for _, n := range nodes {
		if n == nil || n.Kind != view.KindElement {
			continue
		}
		key := nodeKey(n)
		if _, taken := matched[key]; taken {
			continue
		}
		if cand := oldByKey[key]; cand != nil && cand.Tag == n.Tag && !cand.contains(parent) {
			matched[key] = cand
		}
	}

	used := make(map[*Element]bool, len(matched))
	for _, el := range matched {
		used[el] = true
	}
	for _, c := range old {
		if !used[c] {
			r.Recycle(c)
		}
	}

	consumed := make(map[string]bool, len(matched))
	var next []*Element
	for _, n := range nodes {
		if n != nil && n.Kind == view.KindElement {
			key := nodeKey(n)
			if match := matched[key]; match != nil && !consumed[key] {
				consumed[key] = true
				r.refreshStatic(match, n)
				next = append(next, match)
				continue
			}
		}
		if el := r.renderNode(n); el != nil {
			if el.Tag == FragmentTag {
				next = append(next, el.children...)
			} else {
				next = append(next, el)
			}
		}
	}

	parent.ReplaceChildren(next...)
}

// refreshStatic applies only the statically known props of a node to a
// reused element. Reactive bindings created when the element was first
// built stay live and keep owning text/style/children they bound.
func (r *Renderer) refreshStatic(el *Element, node *view.Node) {
	for key, value := range node.Props {
		if view.IsEventKey(key) || key == "key" {
			continue
		}
		switch key {
		case "text":
			if s, ok := value.(string); ok {
				el.SetText(s)
			}
		case "style":
			if _, dynamic := value.(func() any); !dynamic {
				if !view.IsPending(value) {
					applyStyleValue(el, value)
				}
			}
		case "children":
			// dynamic children stay owned by their binding
		default:
			if stableValue(value) {
				applyAttrValue(el, key, value)
			}
		}
	}

	if len(node.Children) > 0 {
		r.reconcileChildren(el, node.Children)
	}
}
