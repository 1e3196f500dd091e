package build

import (
	"sync"
	"time"
)

// RegistryCapacity bounds the number of build contexts tracked at once.
// Builds are strictly sequential, so the bound exists for introspection
// bookkeeping, not scheduling.
const RegistryCapacity = 16

// Context is the per-attempt state of one build. It is created when a build
// starts and discarded when the registry drops it; it is never persisted.
type Context struct {
	Name       string
	Version    string
	Status     Status
	StartedAt  time.Time
	FinishedAt time.Time
	WorkDir    string
	SourceDir  string
	StageDir   string
}

// Registry tracks in-flight build contexts so "is X currently building"
// queries can be answered within a run.
type Registry struct {
	mu     sync.Mutex
	active []*Context
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a context. A retried package replaces the context of its
// previous attempt. When every slot is taken, a finished context is evicted
// to make room; Register returns false only when all slots hold unfinished
// builds, in which case the build proceeds untracked.
func (r *Registry) Register(bctx *Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, old := range r.active {
		if old.Name == bctx.Name {
			r.active[i] = bctx
			return true
		}
	}
	if len(r.active) >= RegistryCapacity && !r.evictFinishedLocked() {
		return false
	}
	r.active = append(r.active, bctx)
	return true
}

func (r *Registry) evictFinishedLocked() bool {
	for i, bctx := range r.active {
		if bctx.Status == StatusComplete || bctx.Status == StatusFailed {
			r.active = append(r.active[:i], r.active[i+1:]...)
			return true
		}
	}
	return false
}

// Status returns the current status of a tracked build by package name.
func (r *Registry) Status(name string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bctx := range r.active {
		if bctx.Name == name {
			return bctx.Status, true
		}
	}
	return StatusInit, false
}

// SetStatus updates the status of a tracked build. Unknown names are
// ignored; the build may be running untracked.
func (r *Registry) SetStatus(name string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bctx := range r.active {
		if bctx.Name == name {
			bctx.Status = status
			if status == StatusComplete || status == StatusFailed {
				bctx.FinishedAt = time.Now()
			}
			return
		}
	}
}

// Active returns a snapshot of the tracked contexts.
func (r *Registry) Active() []*Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Context, len(r.active))
	copy(out, r.active)
	return out
}

// Done drops a context from the registry.
func (r *Registry) Done(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, bctx := range r.active {
		if bctx.Name == name {
			r.active = append(r.active[:i], r.active[i+1:]...)
			return
		}
	}
}
