package dispatch

import (
	"sync"
)

// Sender is one connected agent channel. Send must be safe for
// concurrent use; implementations serialize writes internally.
type Sender interface {
	Send(data []byte) error
}

// Registry tracks currently connected agent channels. It exists only so
// broadcasts can iterate the live set; it deliberately does not map
// printer identities to connections, since delivery is an untargeted
// broadcast and agents self-filter. Owned by the Broadcaster, created at
// startup.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Sender
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Sender),
	}
}

func (r *Registry) Add(id string, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = s
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Snapshot returns the current connections. Broadcast iterates the
// snapshot, never the live map, so a concurrent disconnect cannot race
// the iteration.
func (r *Registry) Snapshot() []Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Sender, 0, len(r.conns))
	for _, s := range r.conns {
		conns = append(conns, s)
	}
	return conns
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
