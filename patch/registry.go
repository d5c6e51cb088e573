package patch

import (
	"sort"
	"sync"
)

// Registry maps socket ids to the socket currently backing them. The last
// registration under an id wins, which is how a recreated unit replaces the
// old one.
type Registry struct {
	mu      sync.RWMutex
	sockets map[string]Socket
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sockets: make(map[string]Socket)}
}

// Register inserts or replaces the socket for id. A nil socket or an empty
// id is ignored.
func (r *Registry) Register(id string, s Socket) {
	if id == "" || s == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sockets[id] = s
}

// Unregister removes id and returns the socket it held.
func (r *Registry) Unregister(id string) (Socket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sockets[id]
	if ok {
		delete(r.sockets, id)
	}

	return s, ok
}

// Lookup returns the socket for id. Unknown ids report false; they are
// normal while widgets are still mounting.
func (r *Registry) Lookup(id string) (Socket, bool) {
	if id == "" {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sockets[id]

	return s, ok
}

// Len returns the number of registered sockets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sockets)
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.sockets))
	for id := range r.sockets {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// IDsWithRole returns the ids registered with role, in sorted order.
func (r *Registry) IDsWithRole(role Role) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string

	for id, s := range r.sockets {
		if s.Role() == role {
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	return ids
}

// Each calls fn for every entry in id order, on a copy taken under the lock,
// so fn may call back into the registry.
func (r *Registry) Each(fn func(id string, s Socket)) {
	r.mu.RLock()
	entries := make(map[string]Socket, len(r.sockets))

	for id, s := range r.sockets {
		entries[id] = s
	}
	r.mu.RUnlock()

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	for _, id := range ids {
		fn(id, entries[id])
	}
}

// CountByRole returns how many sockets hold each role.
func (r *Registry) CountByRole() map[Role]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[Role]int{}
	for _, s := range r.sockets {
		counts[s.Role()]++
	}

	return counts
}
