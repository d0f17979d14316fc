package rooms

import (
	"sort"
	"sync"
)

// Sender delivers one event to one connection. The gateway's connection
// table implements it; tests use fakes.
type Sender interface {
	Send(connectionID, event string, payload any) error
}

type room struct {
	members   map[string]struct{}
	protected bool
}

// Fabric groups connections into named rooms and fans events out to them.
// Rooms reference connections, they never own them.
type Fabric struct {
	mu     sync.RWMutex
	rooms  map[string]*room
	sender Sender
}

// Diagnostics summarizes the current room population.
type Diagnostics struct {
	TotalRooms       int `json:"totalRooms"`
	WithParticipants int `json:"withParticipants"`
	Empty            int `json:"empty"`
	Protected        int `json:"protected"`
	Orphaned         int `json:"orphaned"`
}

// CleanupResult reports one orphan sweep.
type CleanupResult struct {
	Cleaned                 int `json:"cleaned"`
	ProtectedSkipped        int `json:"protectedSkipped"`
	WithParticipantsSkipped int `json:"withParticipantsSkipped"`
}

// New builds a fabric with the protected rooms pre-created.
func New(sender Sender) *Fabric {
	f := &Fabric{
		rooms:  make(map[string]*room),
		sender: sender,
	}
	for _, key := range []string{PoolAvailable, PoolBusy, Dashboard} {
		f.rooms[key] = &room{members: make(map[string]struct{}), protected: true}
	}
	return f
}

// Join adds the connection to the room, creating it on first join. Idempotent.
func (f *Fabric) Join(roomKey, connectionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joinLocked(roomKey, connectionID)
}

func (f *Fabric) joinLocked(roomKey, connectionID string) {
	r, ok := f.rooms[roomKey]
	if !ok {
		r = &room{members: make(map[string]struct{}), protected: isProtectedKey(roomKey)}
		f.rooms[roomKey] = r
	}
	r.members[connectionID] = struct{}{}
}

// Leave removes the connection from the room. Idempotent; empty unprotected
// rooms are deleted.
func (f *Fabric) Leave(roomKey, connectionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaveLocked(roomKey, connectionID)
}

func (f *Fabric) leaveLocked(roomKey, connectionID string) {
	r, ok := f.rooms[roomKey]
	if !ok {
		return
	}
	delete(r.members, connectionID)
	if len(r.members) == 0 && !r.protected {
		delete(f.rooms, roomKey)
	}
}

// MoveBetweenPools atomically moves a connection from one pool to the other,
// so a cashier is never observed in neither pool mid-toggle.
func (f *Fabric) MoveBetweenPools(connectionID, fromPoolKey, toPoolKey string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaveLocked(fromPoolKey, connectionID)
	f.joinLocked(toPoolKey, connectionID)
}

// InRoom reports whether the connection is a member of the room.
func (f *Fabric) InRoom(roomKey, connectionID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	r, ok := f.rooms[roomKey]
	if !ok {
		return false
	}
	_, member := r.members[connectionID]
	return member
}

// Members returns the connection ids in the room, sorted for determinism.
func (f *Fabric) Members(roomKey string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	r, ok := f.rooms[roomKey]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(r.members))
	for id := range r.members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Broadcast delivers the event to every member of the room. A missing room
// is a no-op, not an error. Returns the number of attempted deliveries;
// individual send failures are left to the connection layer, which closes
// broken writers through the normal disconnect path.
func (f *Fabric) Broadcast(roomKey, eventName string, payload any) int {
	members := f.Members(roomKey)
	if f.sender == nil {
		return 0
	}
	for _, connectionID := range members {
		_ = f.sender.Send(connectionID, eventName, payload)
	}
	return len(members)
}

// TransactionRoomsOf lists the transaction ids of every transaction room the
// connection currently belongs to. Used to snapshot memberships at disconnect.
func (f *Fabric) TransactionRoomsOf(connectionID string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []string
	for key, r := range f.rooms {
		if _, member := r.members[connectionID]; !member {
			continue
		}
		if txID, ok := TransactionID(key); ok {
			out = append(out, txID)
		}
	}
	sort.Strings(out)
	return out
}

// RemoveConnectionEverywhere strips the connection from every room and
// deletes unprotected rooms that become empty.
func (f *Fabric) RemoveConnectionEverywhere(connectionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, r := range f.rooms {
		if _, member := r.members[connectionID]; !member {
			continue
		}
		delete(r.members, connectionID)
		if len(r.members) == 0 && !r.protected {
			delete(f.rooms, key)
		}
	}
}

// TransactionRooms returns member counts per live transaction room.
func (f *Fabric) TransactionRooms() map[string]int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]int)
	for key, r := range f.rooms {
		if txID, ok := TransactionID(key); ok {
			out[txID] = len(r.members)
		}
	}
	return out
}

// Diagnose summarizes room population. Orphaned rooms are empty and
// unprotected; under normal operation Leave/RemoveConnectionEverywhere
// delete them eagerly, so a non-zero count points at a leak.
func (f *Fabric) Diagnose() Diagnostics {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var d Diagnostics
	d.TotalRooms = len(f.rooms)
	for _, r := range f.rooms {
		switch {
		case len(r.members) > 0:
			d.WithParticipants++
		default:
			d.Empty++
		}
		if r.protected {
			d.Protected++
		}
		if len(r.members) == 0 && !r.protected {
			d.Orphaned++
		}
	}
	return d
}

// CleanupOrphans deletes every empty unprotected room. Protected and
// populated rooms are untouched; running it twice in a row cleans zero.
func (f *Fabric) CleanupOrphans() CleanupResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	var res CleanupResult
	for key, r := range f.rooms {
		switch {
		case r.protected:
			res.ProtectedSkipped++
		case len(r.members) > 0:
			res.WithParticipantsSkipped++
		default:
			delete(f.rooms, key)
			res.Cleaned++
		}
	}
	return res
}
