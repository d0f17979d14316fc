package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/cashlinkhq/cashlink-backend/internal/presence"
	"github.com/cashlinkhq/cashlink-backend/internal/recovery"
	"github.com/cashlinkhq/cashlink-backend/internal/registry"
	"github.com/cashlinkhq/cashlink-backend/internal/rooms"
	"github.com/cashlinkhq/cashlink-backend/pkg/config"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
	"github.com/cashlinkhq/cashlink-backend/pkg/logger"
	"github.com/cashlinkhq/cashlink-backend/pkg/metrics"
)

// Hub owns every piece of in-memory realtime state: the connection registry,
// the room fabric, pending recovery snapshots, and the presence views derived
// from them. All mutation goes through its methods; handlers never touch the
// underlying maps. Constructed once per process.
type Hub struct {
	// mu serializes connect, disconnect, and eviction sequences so an
	// observer never sees two live connections for one identity.
	mu sync.Mutex

	connsMu sync.RWMutex
	conns   map[string]Conn

	registry  *registry.Registry
	fabric    *rooms.Fabric
	recovery  *recovery.Coordinator
	presence  *presence.Aggregator
	gwMetrics *metrics.GatewayMetrics
	log       *logger.Logger
}

// HubParams wires the hub dependencies.
type HubParams struct {
	RecoveryCfg config.RecoveryConfig
	Metrics     *metrics.GatewayMetrics
	Log         *logger.Logger
}

func NewHub(params HubParams) (*Hub, error) {
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}

	h := &Hub{
		conns:     make(map[string]Conn),
		registry:  registry.New(),
		gwMetrics: params.Metrics,
		log:       params.Log,
	}
	h.fabric = rooms.New(h)
	h.recovery = recovery.New(h.fabric, recovery.Config{
		PlayerGrace:  params.RecoveryCfg.PlayerGrace,
		CashierGrace: params.RecoveryCfg.CashierGrace,
	}, h.onRecoveryExpired)
	h.presence = presence.New(h.registry, h.fabric)
	return h, nil
}

// Send implements rooms.Sender: delivery of one event to one connection.
func (h *Hub) Send(connectionID, event string, payload any) error {
	h.connsMu.RLock()
	conn, ok := h.conns[connectionID]
	h.connsMu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown connection %s", connectionID)
	}
	return conn.Send(event, payload)
}

// Attach makes a freshly upgraded connection addressable. The connection
// stays outside the registry until it authenticates.
func (h *Hub) Attach(conn Conn) {
	h.connsMu.Lock()
	h.conns[conn.ID()] = conn
	h.connsMu.Unlock()
}

func (h *Hub) detach(connectionID string) Conn {
	h.connsMu.Lock()
	conn := h.conns[connectionID]
	delete(h.conns, connectionID)
	h.connsMu.Unlock()
	return conn
}

// Identity resolves a connection to its authenticated identity.
func (h *Hub) Identity(connectionID string) (registry.Identity, bool) {
	return h.registry.LookupActor(connectionID)
}

// RegisterActor binds the identity to the connection, evicting any prior
// session, places the connection into its default rooms, and runs recovery.
// The evicted connection is notified, closed, and stripped from every room
// before this returns.
func (h *Hub) RegisterActor(ctx context.Context, identity registry.Identity, connectionID string) recovery.Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	wasBusy := false
	if evicted := h.registry.Register(identity, connectionID); evicted != nil {
		h.gwMetrics.IncEviction()
		_ = h.Send(evicted.ID, EventSessionReplaced, map[string]string{
			"message": "your session was opened from another device",
			"reason":  "session-replaced",
		})
		// The replacing session inherits the transaction rooms and the pool
		// the evicted one held, so switching devices mid-transaction keeps
		// the actor in the conversation and a busy cashier stays busy.
		inherited := h.fabric.TransactionRoomsOf(evicted.ID)
		wasBusy = h.fabric.InRoom(rooms.PoolBusy, evicted.ID)
		h.fabric.RemoveConnectionEverywhere(evicted.ID)
		for _, txID := range inherited {
			h.fabric.Join(rooms.TransactionRoom(txID), connectionID)
		}
		if conn := h.detach(evicted.ID); conn != nil {
			_ = conn.Close()
		}
		h.log.Warn(h.log.WithActor(ctx, string(identity.Kind), identity.ID), "evicted prior session")
	}

	switch identity.Kind {
	case enums.ActorKindPlayer:
		h.fabric.Join(rooms.PlayerRoom(identity.ID), connectionID)
	case enums.ActorKindCashier:
		if wasBusy {
			h.fabric.Join(rooms.PoolBusy, connectionID)
		} else {
			h.fabric.Join(rooms.PoolAvailable, connectionID)
		}
	}

	result := h.recovery.Reconnect(identity, connectionID)
	if result.Recovered {
		h.gwMetrics.IncRecovery()
	}

	h.refreshGauges()
	h.broadcastPresence()
	return result
}

// Disconnect tears down a connection. Authenticated connections get a
// recovery snapshot of their transaction rooms before the fabric forgets
// them; an evicted or never-authenticated connection tears down silently.
func (h *Hub) Disconnect(ctx context.Context, connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	identity, authenticated := h.registry.LookupActor(connectionID)
	if authenticated {
		transactionIDs := h.fabric.TransactionRoomsOf(connectionID)
		h.registry.Remove(connectionID)
		h.fabric.RemoveConnectionEverywhere(connectionID)
		h.recovery.TrackDisconnect(identity, transactionIDs)
		h.log.Info(h.log.WithActor(ctx, string(identity.Kind), identity.ID), "actor disconnected")
	} else {
		h.fabric.RemoveConnectionEverywhere(connectionID)
	}

	if conn := h.detach(connectionID); conn != nil {
		_ = conn.Close()
	}

	h.refreshGauges()
	if authenticated {
		h.broadcastPresence()
	}
}

// SetCashierStatus moves the cashier between the availability pools.
func (h *Hub) SetCashierStatus(connectionID string, status enums.CashierStatus) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	identity, ok := h.registry.LookupActor(connectionID)
	if !ok || identity.Kind != enums.ActorKindCashier {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only cashiers have an availability status")
	}

	switch status {
	case enums.CashierStatusAvailable:
		h.fabric.MoveBetweenPools(connectionID, rooms.PoolBusy, rooms.PoolAvailable)
	case enums.CashierStatusBusy:
		h.fabric.MoveBetweenPools(connectionID, rooms.PoolAvailable, rooms.PoolBusy)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}

	h.broadcastPresence()
	return nil
}

// JoinTransaction adds the connection to a transaction room.
func (h *Hub) JoinTransaction(connectionID, transactionID string) {
	h.fabric.Join(rooms.TransactionRoom(transactionID), connectionID)
	h.broadcastPresence()
}

// LeaveTransaction removes the connection from a transaction room.
func (h *Hub) LeaveTransaction(connectionID, transactionID string) {
	h.fabric.Leave(rooms.TransactionRoom(transactionID), connectionID)
	h.broadcastPresence()
}

// BroadcastToTransaction fans an event out to a transaction room's members.
func (h *Hub) BroadcastToTransaction(transactionID, event string, payload any) int {
	return h.fabric.Broadcast(rooms.TransactionRoom(transactionID), event, payload)
}

// JoinDashboard subscribes the connection to presence pushes and returns the
// current state.
func (h *Hub) JoinDashboard(connectionID string) presence.State {
	h.fabric.Join(rooms.Dashboard, connectionID)
	return h.presence.Snapshot()
}

// PresenceState returns the full dashboard snapshot.
func (h *Hub) PresenceState() presence.State {
	return h.presence.Snapshot()
}

// Cashiers returns the pool-derived cashier list.
func (h *Hub) Cashiers() []presence.CashierPresence {
	return h.presence.Cashiers()
}

// TransactionRooms returns the live transaction rooms with member counts.
func (h *Hub) TransactionRooms() []presence.TransactionRoomView {
	return h.presence.TransactionRooms()
}

// Diagnose summarizes the room population.
func (h *Hub) Diagnose() rooms.Diagnostics {
	return h.fabric.Diagnose()
}

// CleanupOrphans sweeps empty unprotected rooms. Shared by the cron job and
// the on-demand rooms:cleanup event.
func (h *Hub) CleanupOrphans(ctx context.Context) rooms.CleanupResult {
	result := h.fabric.CleanupOrphans()
	if result.Cleaned > 0 {
		h.log.Info(h.log.WithField(ctx, "cleaned", result.Cleaned), "cleaned orphaned rooms")
	}
	return result
}

// ConnectionCount reports attached connections, authenticated or not.
func (h *Hub) ConnectionCount() int {
	h.connsMu.RLock()
	defer h.connsMu.RUnlock()
	return len(h.conns)
}

// Stop closes every connection and cancels pending recovery timers. Presence
// state is in-memory only, so a restart drops it; the count is logged for
// operator visibility.
func (h *Hub) Stop(ctx context.Context) {
	h.connsMu.Lock()
	dropped := len(h.conns)
	for id, conn := range h.conns {
		_ = conn.Close()
		delete(h.conns, id)
	}
	h.connsMu.Unlock()

	h.recovery.Stop()
	h.log.Info(h.log.WithField(ctx, "dropped_connections", dropped), "hub stopped")
}

func (h *Hub) onRecoveryExpired(snap recovery.Snapshot) {
	ctx := h.log.WithActor(context.Background(), string(snap.Identity.Kind), snap.Identity.ID)
	h.log.Info(h.log.WithField(ctx, "transactions", snap.TransactionIDs), "recovery window expired")
}

func (h *Hub) refreshGauges() {
	counts := h.registry.CountByKind()
	for _, kind := range []enums.ActorKind{enums.ActorKindPlayer, enums.ActorKindCashier, enums.ActorKindAdmin, enums.ActorKindBot} {
		h.gwMetrics.SetConnected(string(kind), counts[kind])
	}
}

func (h *Hub) broadcastPresence() {
	h.fabric.Broadcast(rooms.Dashboard, EventPresenceUpdate, h.presence.Snapshot())
}
