package dom

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/reflow-dev/reflow/pkg/state"
	"github.com/reflow-dev/reflow/pkg/view"
)

// Marker classes for async and failed regions.
const (
	LoadingClass = "rf-loading"
	ErrorClass   = "rf-error"
)

// Stats are the renderer's running counters.
type Stats struct {
	Renders       uint64
	BatchReuses   uint64
	BatchFailures uint64
	RecycleHits   uint64
	RecycleMisses uint64
}

// Renderer turns view nodes into live elements and keeps reactive regions
// bound to the state store. It owns the element key cache, the recycle pool
// and every element binding; all mutation goes through its entry points.
type Renderer struct {
	store    *state.Store
	registry *view.Registry
	doc      *Document
	ctx      *view.Context
	logger   *slog.Logger

	// mu protects the mode fields only.
	mu            sync.Mutex
	mode          Mode
	batchFailures int
	demoted       bool

	// applyMu serializes every tree mutation: the render walk, host event
	// dispatch routed through Do, and async continuations. No two of them
	// ever interleave on the same tree.
	applyMu     sync.Mutex
	asyncNotify func()

	keyCache map[string]*Element
	pool     *recyclePool
	bindings map[Handle][]*state.Binding

	async *asyncCache

	renders       atomic.Uint64
	batchReuses   atomic.Uint64
	batchFailed   atomic.Uint64
	recycleHits   atomic.Uint64
	recycleMisses atomic.Uint64
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithLogger sets the renderer's logger.
func WithLogger(logger *slog.Logger) RendererOption {
	return func(r *Renderer) { r.logger = logger }
}

// WithMode sets the initial render mode.
func WithMode(m Mode) RendererOption {
	return func(r *Renderer) { r.mode = m }
}

// WithContextValues sets host values passed to every component invocation.
func WithContextValues(values map[string]any) RendererOption {
	return func(r *Renderer) { r.ctx.Values = values }
}

// NewRenderer creates a renderer bound to a store and component registry.
// A nil registry means every tag renders as an element.
func NewRenderer(store *state.Store, registry *view.Registry, opts ...RendererOption) *Renderer {
	r := &Renderer{
		store:    store,
		registry: registry,
		doc:      NewDocument(),
		ctx:      &view.Context{Store: store},
		logger:   slog.Default().With("component", "dom"),
		mode:     ModeFineGrained,
		keyCache: make(map[string]*Element),
		pool:     newRecyclePool(),
		bindings: make(map[Handle][]*state.Binding),
		async:    newAsyncCache(defaultAsyncTTL),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Document returns the document all rendered elements belong to.
func (r *Renderer) Document() *Document { return r.doc }

// Stats returns a snapshot of the renderer's counters.
func (r *Renderer) Stats() Stats {
	return Stats{
		Renders:       r.renders.Load(),
		BatchReuses:   r.batchReuses.Load(),
		BatchFailures: r.batchFailed.Load(),
		RecycleHits:   r.recycleHits.Load(),
		RecycleMisses: r.recycleMisses.Load(),
	}
}

// Render turns a view node (wire format or *view.Node) into a live element
// or fragment. Reactive properties stay bound: when a state path they read
// changes, only that region is re-applied.
func (r *Renderer) Render(v any) (*Element, error) {
	node, err := view.Parse(v, r.registry)
	if err != nil {
		return nil, err
	}
	r.renders.Add(1)
	r.applyMu.Lock()
	defer r.applyMu.Unlock()
	return r.renderNode(node), nil
}

// Do runs fn holding the renderer's tree lock. Hosts that mutate the tree
// from their own goroutines (event dispatch, state writes that fire
// bindings) route the mutation through Do so it cannot interleave with the
// render walk or with an async resolution landing. fn must not call Render
// or Do again.
func (r *Renderer) Do(fn func()) {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()
	fn()
}

// SetAsyncNotify registers fn to run after each asynchronous resolution has
// been applied to the tree, outside the tree lock. Live sessions use it to
// push the resulting patches. Set it before the first Render.
func (r *Renderer) SetAsyncNotify(fn func()) { r.asyncNotify = fn }

func (r *Renderer) notifyAsync() {
	if r.asyncNotify != nil {
		r.asyncNotify()
	}
}

// renderNode dispatches on the parsed node kind.
func (r *Renderer) renderNode(node *view.Node) *Element {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case view.KindText:
		return r.doc.NewText(node.Text)
	case view.KindFragment:
		frag := r.doc.NewFragment()
		for _, c := range node.Children {
			if el := r.renderNode(c); el != nil {
				frag.AppendChild(el)
			}
		}
		return frag
	case view.KindComponent:
		return r.renderComponent(node)
	default:
		return r.renderElement(node)
	}
}

// renderElement builds or reuses one element for the node.
func (r *Renderer) renderElement(node *view.Node) *Element {
	if r.batchActive() {
		if el := r.tryBatchReuse(node); el != nil {
			return el
		}
	}
	return r.buildElement(node)
}

// tryBatchReuse looks the node up in the key cache and mutates the cached
// element in place. Any panic during reuse is contained: the failure is
// counted and the caller falls back to a fresh build.
func (r *Renderer) tryBatchReuse(node *view.Node) (el *Element) {
	key := nodeKey(node)
	cached := r.keyCache[key]
	if cached == nil || cached.Tag != node.Tag {
		return nil
	}

	defer func() {
		if cause := recover(); cause != nil {
			r.batchFailed.Add(1)
			r.noteBatchFailure(cause)
			el = nil
		}
	}()

	r.updateInPlace(cached, node)
	r.noteBatchSuccess()
	r.batchReuses.Add(1)
	return cached
}

// updateInPlace rebinds a cached element to a new view node of the same tag
// and key: old bindings and listeners are torn down, attributes not present
// in the new node are pruned, and the node's props are applied afresh.
// Text, style and children still go through their reactive handlers.
func (r *Renderer) updateInPlace(el *Element, node *view.Node) {
	r.disposeBindings(el)
	el.RemoveListeners()

	keep := make(map[string]bool, len(node.Props))
	for k := range node.Props {
		if view.IsEventKey(k) || k == "key" || k == "text" || k == "style" || k == "children" {
			continue
		}
		keep[k] = true
	}
	for _, name := range el.AttrNames() {
		if !keep[name] {
			el.RemoveAttr(name)
		}
	}

	r.applyProps(el, node)

	if len(node.Children) > 0 {
		r.reconcileChildren(el, node.Children)
	}
}

// buildElement constructs a fresh element (possibly from the recycle pool)
// and binds all of the node's props.
func (r *Renderer) buildElement(node *view.Node) *Element {
	el := r.createElement(node.Tag)

	key := nodeKey(node)
	el.cacheKey = key
	r.keyCache[key] = el

	r.applyProps(el, node)

	for _, c := range node.Children {
		if child := r.renderNode(c); child != nil {
			el.AppendChild(child)
		}
	}
	return el
}

// createElement pops a recycled element for the tag or allocates a new one.
// A recycled instance gets a fresh handle: its previous lifetime was closed
// on cleanup.
func (r *Renderer) createElement(tag string) *Element {
	if el := r.pool.get(tag); el != nil {
		r.recycleHits.Add(1)
		el.handle = r.doc.nextHandle.Add(1)
		r.doc.track(el)
		return el
	}
	r.recycleMisses.Add(1)
	return r.doc.newElement(tag)
}

// applyProps binds every prop of the node to the element, in sorted key
// order for determinism.
func (r *Renderer) applyProps(el *Element, node *view.Node) {
	keys := make([]string, 0, len(node.Props))
	for k := range node.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := node.Props[key]
		switch {
		case key == "key":
			// reconciliation hint, never rendered
		case key == "text":
			r.applyText(el, value)
		case key == "style":
			r.applyStyle(el, value)
		case key == "children":
			r.applyChildren(el, value)
		case view.IsEventKey(key):
			r.applyEvent(el, key, value)
		default:
			r.applyAttr(el, key, value)
		}
	}
}

func (r *Renderer) applyText(el *Element, v any) {
	switch t := v.(type) {
	case string:
		el.SetText(t)
	case func() any:
		r.bindReactive(el, "text", t, func(res any) { el.SetText(toString(res)) })
	case view.Pending:
		r.resolveAsync(el, "text", t, func(res any) { el.SetText(toString(res)) })
	default:
		el.SetText(toString(t))
	}
}

func (r *Renderer) applyStyle(el *Element, v any) {
	apply := func(res any) { applyStyleValue(el, res) }
	switch t := v.(type) {
	case func() any:
		r.bindReactive(el, "style", t, apply)
	case view.Pending:
		r.resolveAsync(el, "style", t, apply)
	default:
		apply(t)
	}
}

// applyStyleValue writes a style mapping onto the element.
func applyStyleValue(el *Element, v any) {
	switch styles := v.(type) {
	case map[string]string:
		for prop, val := range styles {
			el.SetStyle(prop, val)
		}
	case map[string]any:
		for prop, val := range styles {
			el.SetStyle(prop, toString(val))
		}
	}
}

// applyChildren handles the dynamic children prop. Static children were
// lifted at parse time and never reach here.
func (r *Renderer) applyChildren(el *Element, v any) {
	apply := func(res any) {
		node, err := view.Parse(res, r.registry)
		if err != nil {
			r.logger.Error("children parse failed", "tag", el.Tag, "error", err)
			el.ReplaceChildren(r.errorElement(err.Error()))
			return
		}
		r.reconcileChildren(el, flatten(node))
	}

	switch t := v.(type) {
	case func() any:
		r.bindReactive(el, "children", t, apply)
	case view.Pending:
		r.resolveAsync(el, "children", t, apply)
	default:
		apply(t)
	}
}

// flatten turns a parsed children result into a sibling list.
func flatten(node *view.Node) []*view.Node {
	if node == nil {
		return nil
	}
	if node.Kind == view.KindFragment {
		return node.Children
	}
	return []*view.Node{node}
}

func (r *Renderer) applyAttr(el *Element, key string, v any) {
	apply := func(res any) { applyAttrValue(el, key, res) }
	switch t := v.(type) {
	case func() any:
		r.bindReactive(el, key, t, apply)
	case view.Pending:
		r.resolveAsync(el, key, t, apply)
	default:
		apply(t)
	}
}

// applyAttrValue writes one resolved attribute value. Boolean true sets the
// bare attribute, false removes it.
func applyAttrValue(el *Element, key string, v any) {
	switch t := v.(type) {
	case nil:
		el.RemoveAttr(key)
	case bool:
		if t {
			el.SetAttr(key, "")
		} else {
			el.RemoveAttr(key)
		}
	case string:
		el.SetAttr(key, t)
	default:
		el.SetAttr(key, toString(t))
	}
}

// applyEvent registers an event handler prop. Handlers are plain callables
// and are never auto-evaluated.
func (r *Renderer) applyEvent(el *Element, key string, v any) {
	event := key[2:]
	switch h := v.(type) {
	case EventHandler:
		el.AddListener(event, h)
	case func(Event):
		el.AddListener(event, h)
	case func():
		el.AddListener(event, func(Event) { h() })
	case func(any):
		el.AddListener(event, func(ev Event) { h(ev.Value) })
	default:
		r.logger.Warn("unsupported event handler type", "event", event, "type", fmt.Sprintf("%T", v))
	}
}

// bindReactive runs fn inside dependency tracking, applies its result, and
// re-applies whenever a dependency path changes. The previous resolved value
// is equality-checked first so redundant results never touch the element.
// A result implementing Pending escalates to the async path.
func (r *Renderer) bindReactive(el *Element, slot string, fn func() any, apply func(any)) {
	var prev any
	var has bool

	b := r.store.Bind(func() {
		v, err := safeCall(fn)
		if err != nil {
			r.logger.Error("reactive binding failed", "tag", el.Tag, "slot", slot, "error", err)
			return
		}
		if p, ok := v.(view.Pending); ok {
			r.resolveAsync(el, slot, p, apply)
			return
		}
		if has && reflect.DeepEqual(prev, v) {
			return
		}
		prev, has = v, true
		apply(v)
	})
	r.bindings[el.handle] = append(r.bindings[el.handle], b)
}

// renderComponent invokes a registered component and renders its result.
func (r *Renderer) renderComponent(node *view.Node) *Element {
	fn, ok := r.registry.Lookup(node.Tag)
	if !ok {
		return r.errorElement(fmt.Sprintf("unknown component %q", node.Tag))
	}

	result, err := safeCall(func() any { return fn(node.Props, r.ctx) })
	if err != nil {
		r.logger.Error("component failed", "component", node.Tag, "error", err)
		return r.errorElement(err.Error())
	}
	return r.renderResult(result)
}

// renderResult renders any component result shape: a view node, a
// Renderable, a Pending of either, or a scalar coerced to text.
func (r *Renderer) renderResult(v any) *Element {
	switch t := v.(type) {
	case nil:
		return nil
	case view.Pending:
		ph := r.doc.newElement("div")
		ph.SetAttr("class", LoadingClass)
		r.resolveAsync(ph, "component", t, func(res any) {
			if child := r.renderResult(res); child != nil {
				ph.ReplaceChildren(child)
			}
		})
		return ph
	case view.Renderable:
		result, err := safeCall(t.Render)
		if err != nil {
			r.logger.Error("render method failed", "error", err)
			return r.errorElement(err.Error())
		}
		return r.renderResult(result)
	default:
		node, err := view.Parse(v, r.registry)
		if err != nil {
			return r.errorElement(err.Error())
		}
		return r.renderNode(node)
	}
}

// errorElement is the inline error block shown in place of a failed region.
func (r *Renderer) errorElement(msg string) *Element {
	el := r.doc.newElement("div")
	el.SetAttr("class", ErrorClass)
	el.SetText(msg)
	return el
}

// safeCall invokes fn, converting a panic into an error.
func safeCall(fn func() any) (v any, err error) {
	defer func() {
		if cause := recover(); cause != nil {
			err = fmt.Errorf("panic: %v", cause)
		}
	}()
	return fn(), nil
}

// toString renders a resolved value as text. nil becomes the empty string.
func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
