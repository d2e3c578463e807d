package mint

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/semaphore"
)

// Registry holds the single-flight guards of each wallet session. A guard exists only
// while a claim holds it, so the registry never outgrows the claims in flight.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]map[common.Address]*semaphore.Weighted
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: map[string]map[common.Address]*semaphore.Weighted{}}
}

// acquire takes the guard for session and contract without waiting. The returned
// release func must be called exactly once.
func (r *Registry) acquire(session string, contract common.Address) (func(), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	guards, ok := r.sessions[session]
	if !ok {
		guards = map[common.Address]*semaphore.Weighted{}
		r.sessions[session] = guards
	}
	g, ok := guards[contract]
	if !ok {
		g = semaphore.NewWeighted(1)
		guards[contract] = g
	}
	if !g.TryAcquire(1) {
		return nil, false
	}
	return func() { r.release(session, contract, g) }, true
}

func (r *Registry) release(session string, contract common.Address, g *semaphore.Weighted) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g.Release(1)
	guards := r.sessions[session]
	if guards[contract] != g {
		return
	}
	delete(guards, contract)
	if len(guards) == 0 {
		delete(r.sessions, session)
	}
}

// InFlight reports whether a claim holds the guard for session and contract.
func (r *Registry) InFlight(session string, contract common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[session][contract]
	return ok
}

// Close is called when session signs out. Guards held by running claims stay in place
// until those claims release them, so a reconnect cannot start a second claim.
func (r *Registry) Close(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions[session]) == 0 {
		delete(r.sessions, session)
	}
}

// Sessions reports how many sessions have a claim in flight.
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
