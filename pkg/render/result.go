package render

import (
	"context"

	"github.com/reflow-dev/reflow/pkg/view"
)

// Result is the outcome of a string render: either an immediately available
// string (the synchronous path) or a pending one (the escalated asynchronous
// path). Both paths produce identical markup for the same tree.
type Result struct {
	value  string
	future *view.Future[string]
}

func syncResult(s string) *Result {
	return &Result{value: s}
}

func pendingResult(f *view.Future[string]) *Result {
	return &Result{future: f}
}

// Sync reports whether the output was produced without async escalation.
func (r *Result) Sync() bool {
	return r.future == nil
}

// Value returns the synchronous output. It is empty while an asynchronous
// result is still pending; use Await for those.
func (r *Result) Value() string {
	return r.value
}

// Await returns the output, blocking on asynchronous resolution when
// needed. Synchronous results return immediately.
func (r *Result) Await(ctx context.Context) (string, error) {
	if r.future == nil {
		return r.value, nil
	}
	v, err := r.future.Await(ctx)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
