package registry

import (
	"sync"
	"time"

	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
)

// Identity names one actor: a player keyed by their external messaging id,
// everyone else by their persisted document id.
type Identity struct {
	Kind enums.ActorKind
	ID   string
}

func (i Identity) String() string {
	return string(i.Kind) + ":" + i.ID
}

// Connection is the live socket owned by one identity.
type Connection struct {
	ID          string
	Identity    Identity
	ConnectedAt time.Time
}

// Registry maps identities to their single active connection. An identity
// never holds two connections: registering a second one evicts the first.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[Identity]*Connection
	byConn     map[string]*Connection
	now        func() time.Time
}

func New() *Registry {
	return &Registry{
		byIdentity: make(map[Identity]*Connection),
		byConn:     make(map[string]*Connection),
		now:        time.Now,
	}
}

// Register binds the connection to the identity. When the identity already
// holds a different connection, that connection is unbound and returned so
// the caller can notify and close it; the registry itself only swaps maps.
// A connection re-registering as a different identity releases its old
// identity first, so a stale binding can never evict the connection's new
// owner later.
func (r *Registry) Register(identity Identity, connectionID string) (evicted *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rebound := r.byConn[connectionID]; rebound != nil && rebound.Identity != identity {
		if current := r.byIdentity[rebound.Identity]; current != nil && current.ID == connectionID {
			delete(r.byIdentity, rebound.Identity)
		}
	}

	prior := r.byIdentity[identity]
	if prior != nil && prior.ID == connectionID {
		return nil
	}
	if prior != nil {
		delete(r.byConn, prior.ID)
		evicted = prior
	}

	conn := &Connection{
		ID:          connectionID,
		Identity:    identity,
		ConnectedAt: r.now().UTC(),
	}
	r.byIdentity[identity] = conn
	r.byConn[connectionID] = conn
	return evicted
}

// Remove unbinds the connection. No-op when the connection is unknown.
func (r *Registry) Remove(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byConn[connectionID]
	if !ok {
		return
	}
	delete(r.byConn, connectionID)
	if current := r.byIdentity[conn.Identity]; current != nil && current.ID == connectionID {
		delete(r.byIdentity, conn.Identity)
	}
}

// Lookup returns the connection id currently held by the identity.
func (r *Registry) Lookup(identity Identity) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byIdentity[identity]
	if !ok {
		return "", false
	}
	return conn.ID, true
}

// LookupActor resolves a connection id back to its identity.
func (r *Registry) LookupActor(connectionID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.byConn[connectionID]
	if !ok {
		return Identity{}, false
	}
	return conn.Identity, true
}

// Connections returns a snapshot of every live connection.
func (r *Registry) Connections() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Connection, 0, len(r.byConn))
	for _, conn := range r.byConn {
		out = append(out, *conn)
	}
	return out
}

// CountByKind tallies live connections per actor kind.
func (r *Registry) CountByKind() map[enums.ActorKind]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[enums.ActorKind]int)
	for _, conn := range r.byConn {
		counts[conn.Identity.Kind]++
	}
	return counts
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
