package dom

// Mode selects the rendering strategy.
type Mode uint8

const (
	// ModeFineGrained always builds fresh elements and fresh children.
	ModeFineGrained Mode = iota

	// ModeBatch reuses cached elements by reconciliation key, mutating
	// matches in place instead of rebuilding them.
	ModeBatch
)

// String returns the string representation of the Mode.
func (m Mode) String() string {
	switch m {
	case ModeFineGrained:
		return "fine-grained"
	case ModeBatch:
		return "batch"
	default:
		return "unknown"
	}
}

// batchFailureLimit is the number of consecutive batch-mode reconciliation
// failures after which the renderer demotes itself to fine-grained
// permanently. Fail-safe, not fail-fast.
const batchFailureLimit = 3

// Mode returns the renderer's current mode.
func (r *Renderer) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.demoted {
		return ModeFineGrained
	}
	return r.mode
}

// SetMode switches the rendering strategy at runtime. Setting a mode
// explicitly re-arms a demoted renderer and resets the failure counter.
func (r *Renderer) SetMode(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = m
	r.demoted = false
	r.batchFailures = 0
}

// noteBatchFailure records one failed batch reconciliation and demotes the
// renderer after batchFailureLimit consecutive failures.
func (r *Renderer) noteBatchFailure(cause any) {
	r.mu.Lock()
	r.batchFailures++
	failures := r.batchFailures
	if failures >= batchFailureLimit {
		r.demoted = true
	}
	demoted := r.demoted
	r.mu.Unlock()

	if demoted {
		r.logger.Error("batch reconciliation demoted to fine-grained", "failures", failures, "cause", cause)
	} else {
		r.logger.Warn("batch reconciliation failed, falling back for node", "failures", failures, "cause", cause)
	}
}

// noteBatchSuccess resets the consecutive-failure counter.
func (r *Renderer) noteBatchSuccess() {
	r.mu.Lock()
	if !r.demoted {
		r.batchFailures = 0
	}
	r.mu.Unlock()
}

// batchActive reports whether batch reuse should be attempted.
func (r *Renderer) batchActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode == ModeBatch && !r.demoted
}
