package recovery

import (
	"sync"
	"time"

	"github.com/cashlinkhq/cashlink-backend/internal/registry"
	"github.com/cashlinkhq/cashlink-backend/internal/rooms"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
)

// Snapshot records the transaction memberships an actor held at the moment
// its connection dropped. It lives until the actor reconnects or the grace
// window elapses, whichever comes first.
type Snapshot struct {
	Identity       registry.Identity
	Role           enums.ActorKind
	DisconnectedAt time.Time
	TransactionIDs []string
	GraceDeadline  time.Time
}

// Result is returned to the auth flow after a reconnect attempt.
type Result struct {
	Recovered             bool          `json:"recovered"`
	TransactionsRecovered []string      `json:"transactionsRecovered,omitempty"`
	DisconnectionDuration time.Duration `json:"disconnectionDuration,omitempty"`
}

type pending struct {
	snap     Snapshot
	timer    *time.Timer
	consumed bool
}

// Config holds the per-kind grace windows.
type Config struct {
	PlayerGrace  time.Duration
	CashierGrace time.Duration
}

// ExpireFunc is invoked after a snapshot's grace window elapses unconsumed.
type ExpireFunc func(snap Snapshot)

// Coordinator runs the disconnect/reconnect state machine per identity.
// A snapshot is consumed exactly once: whichever of reconnect and expiry
// acts first wins, the other observes "already consumed" and no-ops.
type Coordinator struct {
	mu        sync.Mutex
	snapshots map[registry.Identity]*pending
	fabric    *rooms.Fabric
	cfg       Config
	onExpire  ExpireFunc
	now       func() time.Time
}

func New(fabric *rooms.Fabric, cfg Config, onExpire ExpireFunc) *Coordinator {
	if cfg.PlayerGrace <= 0 {
		cfg.PlayerGrace = 30 * time.Second
	}
	if cfg.CashierGrace <= 0 {
		cfg.CashierGrace = 60 * time.Second
	}
	return &Coordinator{
		snapshots: make(map[registry.Identity]*pending),
		fabric:    fabric,
		cfg:       cfg,
		onExpire:  onExpire,
		now:       time.Now,
	}
}

func (c *Coordinator) graceFor(kind enums.ActorKind) time.Duration {
	if kind == enums.ActorKindCashier {
		return c.cfg.CashierGrace
	}
	return c.cfg.PlayerGrace
}

// TrackDisconnect snapshots the given transaction memberships and opens the
// grace window. Identities without recovery semantics, or with no transaction
// memberships to restore, get no snapshot. A disconnect while a snapshot is
// already pending replaces it; only one connection per identity exists, so
// snapshots never stack.
func (c *Coordinator) TrackDisconnect(identity registry.Identity, transactionIDs []string) {
	if !identity.Kind.SupportsRecovery() || len(transactionIDs) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if prior, ok := c.snapshots[identity]; ok {
		prior.timer.Stop()
		prior.consumed = true
	}

	now := c.now().UTC()
	grace := c.graceFor(identity.Kind)
	ids := make([]string, len(transactionIDs))
	copy(ids, transactionIDs)

	p := &pending{
		snap: Snapshot{
			Identity:       identity,
			Role:           identity.Kind,
			DisconnectedAt: now,
			TransactionIDs: ids,
			GraceDeadline:  now.Add(grace),
		},
	}
	p.timer = time.AfterFunc(grace, func() {
		c.expire(identity, p)
	})
	c.snapshots[identity] = p
}

func (c *Coordinator) expire(identity registry.Identity, p *pending) {
	c.mu.Lock()
	if p.consumed {
		c.mu.Unlock()
		return
	}
	p.consumed = true
	if current, ok := c.snapshots[identity]; ok && current == p {
		delete(c.snapshots, identity)
	}
	snap := p.snap
	c.mu.Unlock()

	if c.onExpire != nil {
		c.onExpire(snap)
	}
}

// Reconnect consumes any pending snapshot for the identity, rejoining the new
// connection to every snapshotted transaction room. Without a snapshot this
// is a normal fresh login and reports Recovered=false.
func (c *Coordinator) Reconnect(identity registry.Identity, connectionID string) Result {
	c.mu.Lock()
	p, ok := c.snapshots[identity]
	if !ok || p.consumed {
		c.mu.Unlock()
		return Result{Recovered: false}
	}
	p.consumed = true
	p.timer.Stop()
	delete(c.snapshots, identity)
	snap := p.snap
	duration := c.now().UTC().Sub(snap.DisconnectedAt)
	c.mu.Unlock()

	for _, txID := range snap.TransactionIDs {
		c.fabric.Join(rooms.TransactionRoom(txID), connectionID)
	}

	return Result{
		Recovered:             true,
		TransactionsRecovered: snap.TransactionIDs,
		DisconnectionDuration: duration,
	}
}

// PendingSnapshot returns a copy of the identity's outstanding snapshot.
func (c *Coordinator) PendingSnapshot(identity registry.Identity) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.snapshots[identity]
	if !ok || p.consumed {
		return Snapshot{}, false
	}
	return p.snap, true
}

// PendingCount reports how many grace windows are currently open.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snapshots)
}

// Stop cancels every outstanding timer. Called on process shutdown; pending
// snapshots are lost with the rest of the in-memory presence state.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for identity, p := range c.snapshots {
		p.timer.Stop()
		p.consumed = true
		delete(c.snapshots, identity)
	}
}
