package dom

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Special tags for non-element nodes in the live tree.
const (
	TextTag     = "#text"
	FragmentTag = "#fragment"
)

// Handle is the stable identifier assigned to every live node at creation.
// Side tables (bindings, async placeholders, the key cache) key on handles
// instead of node pointers, and a handle's lifetime is closed explicitly on
// cleanup.
type Handle = uint64

// Event is a UI event dispatched to a live element.
type Event struct {
	Type   string
	Target *Element
	Value  any
}

// EventHandler handles one dispatched event.
type EventHandler func(Event)

// Document owns a live element tree: handle allocation and the mutation
// sink. All elements produced by one Renderer share one Document.
type Document struct {
	nextHandle atomic.Uint64

	mu       sync.Mutex
	sink     func(Patch)
	elements map[Handle]*Element
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{elements: make(map[Handle]*Element)}
}

// Lookup resolves a handle to its live element. Used to route events
// arriving from a remote client back to the node that registered the
// listener.
func (d *Document) Lookup(h Handle) (*Element, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, ok := d.elements[h]
	return el, ok
}

func (d *Document) track(el *Element) {
	d.mu.Lock()
	d.elements[el.handle] = el
	d.mu.Unlock()
}

func (d *Document) retire(h Handle) {
	d.mu.Lock()
	delete(d.elements, h)
	d.mu.Unlock()
}

// SetSink installs a mutation sink. Every subsequent element mutation emits
// a Patch to it. A nil sink disables emission.
func (d *Document) SetSink(sink func(Patch)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
}

func (d *Document) emit(p Patch) {
	d.mu.Lock()
	sink := d.sink
	d.mu.Unlock()
	if sink != nil {
		sink(p)
	}
}

// Element is one live node: an element, a text node, or a fragment.
// It is mutated only through its methods so every change can be observed by
// the document's sink.
type Element struct {
	doc    *Document
	handle Handle

	Tag string

	parent   *Element
	children []*Element

	attrs  map[string]string
	styles map[string]string
	text   string

	listeners map[string][]EventHandler

	// cacheKey is the reconciliation key this element occupies in the
	// renderer's key cache, empty when uncached.
	cacheKey string
}

// newElement allocates a live node with a fresh handle.
func (d *Document) newElement(tag string) *Element {
	el := &Element{
		doc:    d,
		handle: d.nextHandle.Add(1),
		Tag:    tag,
	}
	d.track(el)
	return el
}

// NewText creates a detached text node.
func (d *Document) NewText(text string) *Element {
	el := d.newElement(TextTag)
	el.text = text
	return el
}

// NewFragment creates a detached fragment.
func (d *Document) NewFragment() *Element {
	return d.newElement(FragmentTag)
}

// Handle returns the node's stable identifier.
func (e *Element) Handle() Handle { return e.handle }

// Parent returns the current parent, nil when detached.
func (e *Element) Parent() *Element { return e.parent }

// Children returns the child list. The slice is shared; callers must not
// mutate it.
func (e *Element) Children() []*Element { return e.children }

// Text returns the node's text content.
func (e *Element) Text() string { return e.text }

// SetText replaces the node's text content.
func (e *Element) SetText(text string) {
	if e.text == text {
		return
	}
	e.text = text
	e.doc.emit(Patch{Op: PatchSetText, Handle: e.handle, Value: text})
}

// Attr returns an attribute value and whether it is set.
func (e *Element) Attr(key string) (string, bool) {
	v, ok := e.attrs[key]
	return v, ok
}

// AttrNames returns the set attribute names, sorted.
func (e *Element) AttrNames() []string {
	names := make([]string, 0, len(e.attrs))
	for k := range e.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetAttr sets an attribute, emitting a patch when the value changes.
func (e *Element) SetAttr(key, value string) {
	if old, ok := e.attrs[key]; ok && old == value {
		return
	}
	if e.attrs == nil {
		e.attrs = make(map[string]string)
	}
	e.attrs[key] = value
	e.doc.emit(Patch{Op: PatchSetAttr, Handle: e.handle, Key: key, Value: value})
}

// RemoveAttr removes an attribute if present.
func (e *Element) RemoveAttr(key string) {
	if _, ok := e.attrs[key]; !ok {
		return
	}
	delete(e.attrs, key)
	e.doc.emit(Patch{Op: PatchRemoveAttr, Handle: e.handle, Key: key})
}

// Style returns one style property value.
func (e *Element) Style(prop string) string {
	return e.styles[prop]
}

// SetStyle sets one style property.
func (e *Element) SetStyle(prop, value string) {
	if e.styles == nil {
		e.styles = make(map[string]string)
	}
	if e.styles[prop] == value {
		return
	}
	e.styles[prop] = value
	e.doc.emit(Patch{Op: PatchSetStyle, Handle: e.handle, Key: prop, Value: value})
}

// ClearStyles removes all style properties.
func (e *Element) ClearStyles() {
	e.styles = nil
}

// AddListener registers an event handler.
func (e *Element) AddListener(event string, h EventHandler) {
	if e.listeners == nil {
		e.listeners = make(map[string][]EventHandler)
	}
	e.listeners[event] = append(e.listeners[event], h)
}

// RemoveListeners drops all event handlers.
func (e *Element) RemoveListeners() {
	e.listeners = nil
}

// Dispatch invokes the handlers registered for the event's type.
func (e *Element) Dispatch(ev Event) {
	ev.Target = e
	for _, h := range e.listeners[ev.Type] {
		h(ev)
	}
}

// contains reports whether other is e or a descendant of e, by walking
// other's ancestor chain.
func (e *Element) contains(other *Element) bool {
	for n := other; n != nil; n = n.parent {
		if n == e {
			return true
		}
	}
	return false
}

// AppendChild attaches child at the end of e's child list, detaching it
// from any previous parent first. Attaching a node at or below itself is
// refused: the tree must stay acyclic.
func (e *Element) AppendChild(child *Element) bool {
	if child == nil || child.contains(e) {
		return false
	}
	child.Detach()
	child.parent = e
	e.children = append(e.children, child)
	e.doc.emit(Patch{Op: PatchInsertNode, Handle: child.handle, ParentHandle: e.handle, Index: len(e.children) - 1})
	return true
}

// Detach removes e from its parent's child list. The node itself is
// untouched: subscriptions and listeners survive for reinsertion.
func (e *Element) Detach() {
	p := e.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == e {
			p.children = append(p.children[:i:i], p.children[i+1:]...)
			break
		}
	}
	e.parent = nil
	e.doc.emit(Patch{Op: PatchRemoveNode, Handle: e.handle})
}

// ReplaceChildren atomically swaps e's entire child list: old children are
// detached and the new ones appended in order, so partial states are never
// observable through the tree.
func (e *Element) ReplaceChildren(children ...*Element) {
	old := e.children
	e.children = nil
	for _, c := range old {
		c.parent = nil
	}
	for _, c := range children {
		if c == nil || c.contains(e) {
			continue
		}
		if c.parent != nil {
			c.Detach()
		}
		c.parent = e
		e.children = append(e.children, c)
	}
	e.doc.emit(Patch{Op: PatchReplaceChildren, Handle: e.handle})
}

// reset wipes content, attributes, styles and listeners so the element can
// be reused from the recycle pool.
func (e *Element) reset() {
	e.attrs = nil
	e.styles = nil
	e.text = ""
	e.listeners = nil
	e.cacheKey = ""
	for _, c := range e.children {
		c.parent = nil
	}
	e.children = nil
	e.parent = nil
}

// ClassList returns the element's classes.
func (e *Element) ClassList() []string {
	v := e.attrs["class"]
	if v == "" {
		return nil
	}
	return strings.Fields(v)
}

// HasClass reports whether the element carries the class.
func (e *Element) HasClass(name string) bool {
	for _, c := range e.ClassList() {
		if c == name {
			return true
		}
	}
	return false
}
