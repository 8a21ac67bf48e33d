package docstore

import "sync/atomic"

// Router points a session's engines at the shared store while it is syncing or live, and at the
// device-local store once it has fallen back to solo.
type Router struct {
	remote    Store
	local     *MemoryStore
	useRemote atomic.Bool
}

// NewRouter starts out on the local store.
func NewRouter(remote Store, local *MemoryStore) *Router {
	if remote == nil {
		remote = Unavailable{}
	}
	return &Router{remote: remote, local: local}
}

// UseRemote switches writes and subscriptions to the shared store. It is a no-op when the shared
// store is unavailable.
func (r *Router) UseRemote(on bool) {
	r.useRemote.Store(on && r.remote.Available())
}

// Remote reports whether the shared store is in use.
func (r *Router) Remote() bool {
	return r.useRemote.Load()
}

// Store returns the store engines should currently talk to.
func (r *Router) Store() Store {
	if r.useRemote.Load() {
		return r.remote
	}
	return r.local
}

// Shared returns the shared store regardless of the current mode.
func (r *Router) Shared() Store {
	return r.remote
}

// Local returns the device-local store.
func (r *Router) Local() *MemoryStore {
	return r.local
}

// Provider yields the store for the next operation. Router is the per-session provider.
type Provider interface {
	Store() Store
}

var _ Provider = (*Router)(nil)

type fixed struct{ s Store }

func (f fixed) Store() Store { return f.s }

// Fixed is a Provider that always returns s. Host-side services use it.
func Fixed(s Store) Provider {
	return fixed{s: s}
}

// IsShared reports whether p currently resolves to a shared store. A Router is shared only while
// it uses the remote store; other providers are host-side and always shared.
func IsShared(p Provider) bool {
	if r, ok := p.(*Router); ok {
		return r.Remote()
	}
	return true
}
