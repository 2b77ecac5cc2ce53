package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	rferrors "github.com/reflow-dev/reflow/internal/errors"
	"github.com/reflow-dev/reflow/pkg/state"
	"github.com/reflow-dev/reflow/pkg/view"
)

// DefaultMaxDepth bounds render recursion, protecting against accidental
// self-referential view trees.
const DefaultMaxDepth = 100

// defaultAsyncTimeout applies to forced-async renders with no explicit
// timeout.
const defaultAsyncTimeout = 10 * time.Second

// errEscalate is the internal signal that the synchronous attempt hit an
// asynchronous value and the subtree must be re-driven through the async
// path. It never escapes the renderer.
var errEscalate = errors.New("async value encountered")

// Mode selects the string-rendering behavior.
type Mode uint8

const (
	// ModeAuto attempts a synchronous pass and escalates the whole tree
	// to the asynchronous path if any pending value is encountered.
	ModeAuto Mode = iota

	// ModeSync never awaits: a pending value degrades to an inline error
	// marker.
	ModeSync

	// ModeAsync always renders through the asynchronous path and races
	// the render against a timeout.
	ModeAsync
)

// Options configures one ToString call.
type Options struct {
	Mode    Mode
	Timeout time.Duration // forced-async only; zero means defaultAsyncTimeout
}

// Renderer renders view nodes to HTML strings. It depends only on the state
// store's read API: no live elements or subscriptions are created.
type Renderer struct {
	store    *state.Store
	registry *view.Registry
	ctx      *view.Context
	logger   *slog.Logger
	maxDepth int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the renderer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

// WithMaxDepth overrides the recursion bound.
func WithMaxDepth(n int) Option {
	return func(r *Renderer) { r.maxDepth = n }
}

// WithContextValues sets host values passed to component invocations.
func WithContextValues(values map[string]any) Option {
	return func(r *Renderer) { r.ctx.Values = values }
}

// NewRenderer creates a string renderer bound to a store and component
// registry.
func NewRenderer(store *state.Store, registry *view.Registry, opts ...Option) *Renderer {
	r := &Renderer{
		store:    store,
		registry: registry,
		ctx:      &view.Context{Store: store},
		logger:   slog.Default().With("component", "render"),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ToString renders a view node to HTML. In the default auto mode the result
// is synchronous unless some component, render method, or evaluated
// property produced a pending value, in which case the same subtree is
// re-driven asynchronously and the Result resolves later with identical
// output. Errors inside the tree degrade to inline markers; only a failure
// of the outermost call itself is returned as an error.
func (r *Renderer) ToString(v any, opts ...Options) (*Result, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	node, err := view.Parse(v, r.registry)
	if err != nil {
		return nil, err
	}

	switch o.Mode {
	case ModeSync:
		s, err := r.renderWith(node, syncForced{})
		if err != nil {
			return nil, err
		}
		return syncResult(s), nil

	case ModeAsync:
		timeout := o.Timeout
		if timeout <= 0 {
			timeout = defaultAsyncTimeout
		}
		return pendingResult(r.renderAsync(node, timeout)), nil

	default:
		s, err := r.renderWith(node, syncDetect{})
		if err == nil {
			return syncResult(s), nil
		}
		if !errors.Is(err, errEscalate) {
			return nil, err
		}
		return pendingResult(r.renderAsync(node, 0)), nil
	}
}

// executor is the execution strategy the single tree-walk is parameterized
// over: it decides what happens when a pending value is reached.
type executor interface {
	resolve(p view.Pending) (any, error)
}

// syncDetect aborts the synchronous attempt so the tree can escalate.
type syncDetect struct{}

func (syncDetect) resolve(view.Pending) (any, error) { return nil, errEscalate }

// syncForced never awaits; the pending value degrades to an inline marker.
type syncForced struct{}

func (syncForced) resolve(view.Pending) (any, error) {
	return nil, errors.New("async value in synchronous render")
}

// asyncExec awaits every pending value depth-first.
type asyncExec struct{ ctx context.Context }

func (e asyncExec) resolve(p view.Pending) (any, error) {
	return p.Await(e.ctx)
}

// renderAsync drives the async walk in its own goroutine, racing an
// optional timeout. The future always resolves: a timeout yields an error
// block instead of the page.
func (r *Renderer) renderAsync(node *view.Node, timeout time.Duration) *view.Future[string] {
	f := view.NewFuture[string]()

	go func() {
		ctx := context.Background()
		cancel := func() {}
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, timeout)
		}
		defer cancel()

		done := make(chan string, 1)
		go func() {
			s, err := r.renderWith(node, asyncExec{ctx: ctx})
			if err != nil {
				s = errorBlock(err.Error())
			}
			done <- s
		}()

		select {
		case s := <-done:
			f.Resolve(s)
		case <-ctx.Done():
			f.Resolve(errorBlock("render timeout exceeded"))
		}
	}()

	return f
}

// renderWith runs the walk with the given execution strategy.
func (r *Renderer) renderWith(node *view.Node, ex executor) (string, error) {
	var sb strings.Builder
	if err := r.renderNode(&sb, node, 0, ex); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// renderNode dispatches on node kind. Returning a non-nil error means
// escalation; every other failure is contained inline.
func (r *Renderer) renderNode(sb *strings.Builder, node *view.Node, depth int, ex executor) error {
	if node == nil {
		return nil
	}
	if depth > r.maxDepth {
		sb.WriteString("<!-- max depth exceeded -->")
		return nil
	}

	switch node.Kind {
	case view.KindText:
		sb.WriteString(EscapeHTML(node.Text))
		return nil
	case view.KindFragment:
		for _, c := range node.Children {
			if err := r.renderNode(sb, c, depth, ex); err != nil {
				return err
			}
		}
		return nil
	case view.KindComponent:
		return r.renderComponent(sb, node, depth, ex)
	default:
		return r.renderElement(sb, node, depth, ex)
	}
}

// renderElement emits one element: sorted attributes, style, text, then
// children.
func (r *Renderer) renderElement(sb *strings.Builder, node *view.Node, depth int, ex executor) error {
	tag := node.Tag
	sb.WriteByte('<')
	sb.WriteString(tag)

	keys := make([]string, 0, len(node.Props))
	for k := range node.Props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if key == "key" || key == "text" || key == "style" || key == "children" || view.IsEventKey(key) {
			continue
		}
		resolved, err := r.eval(node.Props[key], ex)
		if err != nil {
			if errors.Is(err, errEscalate) {
				return err
			}
			r.logger.Warn("attribute eval failed", "tag", tag, "attr", key, "error", err)
			continue
		}
		emitAttr(sb, key, resolved)
	}

	if sv, ok := node.Props["style"]; ok {
		resolved, err := r.eval(sv, ex)
		if err != nil {
			if errors.Is(err, errEscalate) {
				return err
			}
			r.logger.Warn("style eval failed", "tag", tag, "error", err)
		} else if css := styleString(resolved); css != "" {
			fmt.Fprintf(sb, ` style="%s"`, EscapeAttr(css))
		}
	}

	if isVoidElement(tag) {
		sb.WriteByte('>')
		return nil
	}
	sb.WriteByte('>')

	if tv, ok := node.Props["text"]; ok {
		resolved, err := r.eval(tv, ex)
		if err != nil {
			if errors.Is(err, errEscalate) {
				return err
			}
			writeErrorComment(sb, err)
		} else {
			sb.WriteString(EscapeHTML(toText(resolved)))
		}
	}

	for _, c := range node.Children {
		if err := r.renderNode(sb, c, depth+1, ex); err != nil {
			return err
		}
	}

	if cv, ok := node.Props["children"]; ok {
		if err := r.renderDynamicChildren(sb, cv, depth, ex); err != nil {
			return err
		}
	}

	sb.WriteString("</")
	sb.WriteString(tag)
	sb.WriteByte('>')
	return nil
}

func (r *Renderer) renderDynamicChildren(sb *strings.Builder, cv any, depth int, ex executor) error {
	resolved, err := r.eval(cv, ex)
	if err != nil {
		if errors.Is(err, errEscalate) {
			return err
		}
		sb.WriteString(errorBlock(err.Error()))
		return nil
	}

	child, perr := view.Parse(resolved, r.registry)
	if perr != nil {
		sb.WriteString(errorBlock(perr.Error()))
		return nil
	}
	return r.renderNode(sb, child, depth+1, ex)
}

// renderComponent invokes the component and renders its result.
func (r *Renderer) renderComponent(sb *strings.Builder, node *view.Node, depth int, ex executor) error {
	fn, ok := r.registry.Lookup(node.Tag)
	if !ok {
		sb.WriteString(errorBlock(fmt.Sprintf("unknown component %q", node.Tag)))
		return nil
	}

	result, err := safeCall(func() any { return fn(node.Props, r.ctx) })
	if err != nil {
		cerr := rferrors.Newf(rferrors.CodeComponentFailed, rferrors.CategoryComponent,
			"component %q: %v", node.Tag, err)
		r.logger.Error("component failed", "component", node.Tag, "error", err)
		sb.WriteString(errorBlock(cerr.Error()))
		return nil
	}
	return r.renderResult(sb, result, depth+1, ex)
}

// renderResult renders any accepted component result shape: a view node, an
// object with a Render method (possibly async), a pending value of either,
// or a scalar coerced to escaped text. Anything else is warned about and
// stringified.
func (r *Renderer) renderResult(sb *strings.Builder, v any, depth int, ex executor) error {
	switch t := v.(type) {
	case nil:
		return nil
	case view.Pending:
		resolved, err := ex.resolve(t)
		if err != nil {
			if errors.Is(err, errEscalate) {
				return err
			}
			rerr := rferrors.Wrap(err, rferrors.CodeAsyncRejected, rferrors.CategoryAsync, err.Error())
			sb.WriteString(errorBlock(rerr.Error()))
			return nil
		}
		return r.renderResult(sb, resolved, depth, ex)
	case view.Renderable:
		out, err := safeCall(t.Render)
		if err != nil {
			sb.WriteString(errorBlock(err.Error()))
			return nil
		}
		return r.renderResult(sb, out, depth, ex)
	case *view.Node, map[string]any, []any, []map[string]any, string:
		node, err := view.Parse(t, r.registry)
		if err != nil {
			sb.WriteString(errorBlock(err.Error()))
			return nil
		}
		return r.renderNode(sb, node, depth, ex)
	default:
		r.logger.Warn("unexpected component result", "type", fmt.Sprintf("%T", v))
		sb.WriteString(EscapeHTML(fmt.Sprint(v)))
		return nil
	}
}

// eval resolves a prop value: reactive binding functions are invoked (with
// panics contained) and pending values go through the execution strategy.
func (r *Renderer) eval(v any, ex executor) (any, error) {
	if fn, ok := v.(func() any); ok {
		out, err := safeCall(fn)
		if err != nil {
			return nil, err
		}
		v = out
	}
	if p, ok := v.(view.Pending); ok {
		return ex.resolve(p)
	}
	return v, nil
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

// toText renders a resolved text value. nil becomes the empty string.
func toText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// errorBlock is the inline error marker emitted in place of a failed
// region, preserving the surrounding markup.
func errorBlock(msg string) string {
	return `<div class="rf-error">` + EscapeHTML(msg) + `</div>`
}

// writeErrorComment emits a failed text binding as an HTML comment.
func writeErrorComment(sb *strings.Builder, err error) {
	sb.WriteString("<!-- error: ")
	sb.WriteString(EscapeHTML(err.Error()))
	sb.WriteString(" -->")
}
