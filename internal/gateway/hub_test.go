package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cashlinkhq/cashlink-backend/internal/registry"
	"github.com/cashlinkhq/cashlink-backend/pkg/config"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
	"github.com/cashlinkhq/cashlink-backend/pkg/logger"
	"github.com/cashlinkhq/cashlink-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type sentEvent struct {
	Event   string
	Payload any
}

type fakeConn struct {
	id string

	mu     sync.Mutex
	events []sentEvent
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, sentEvent{Event: event, Payload: payload})
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received(event string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.Event == event {
			return true
		}
	}
	return false
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub, err := NewHub(HubParams{
		RecoveryCfg: config.RecoveryConfig{PlayerGrace: time.Minute, CashierGrace: time.Minute},
		Metrics:     metrics.NewGatewayMetrics(prometheus.NewRegistry()),
		Log:         logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { hub.Stop(context.Background()) })
	return hub
}

func playerIdentity(id string) registry.Identity {
	return registry.Identity{Kind: enums.ActorKindPlayer, ID: id}
}

func TestRegisterEvictsPriorSession(t *testing.T) {
	hub := newTestHub(t)
	identity := playerIdentity("tg-1")

	first := newFakeConn("conn-a")
	hub.Attach(first)
	hub.RegisterActor(context.Background(), identity, first.ID())
	hub.JoinTransaction(first.ID(), "11111111-1111-1111-1111-111111111111")

	second := newFakeConn("conn-b")
	hub.Attach(second)
	hub.RegisterActor(context.Background(), identity, second.ID())

	if !first.received(EventSessionReplaced) {
		t.Fatal("evicted connection must get session-replaced")
	}
	if !first.isClosed() {
		t.Fatal("evicted connection must be closed")
	}
	if got, _ := hub.Identity(second.ID()); got != identity {
		t.Fatalf("identity should map to the new connection, got %+v", got)
	}
	if _, ok := hub.Identity(first.ID()); ok {
		t.Fatal("evicted connection must be unbound")
	}

	// The replacing session inherits the transaction room.
	txRooms := hub.TransactionRooms()
	if len(txRooms) != 1 || txRooms[0].Members != 1 {
		t.Fatalf("transaction room should carry exactly the new session: %+v", txRooms)
	}
}

func TestConcurrentDuplicateRegistrations(t *testing.T) {
	hub := newTestHub(t)
	identity := playerIdentity("tg-race")

	const sessions = 30
	var wg sync.WaitGroup
	wg.Add(sessions)
	for i := 0; i < sessions; i++ {
		conn := newFakeConn("conn-" + string(rune('a'+i)))
		hub.Attach(conn)
		go func(c *fakeConn) {
			defer wg.Done()
			hub.RegisterActor(context.Background(), identity, c.ID())
		}(conn)
	}
	wg.Wait()

	state := hub.PresenceState()
	if state.Totals[enums.ActorKindPlayer] != 1 {
		t.Fatalf("identity must hold exactly one live connection, totals %+v", state.Totals)
	}
}

func TestDisconnectThenReconnectRecovers(t *testing.T) {
	hub := newTestHub(t)
	identity := playerIdentity("tg-1")
	txID := "22222222-2222-2222-2222-222222222222"

	first := newFakeConn("conn-a")
	hub.Attach(first)
	hub.RegisterActor(context.Background(), identity, first.ID())
	hub.JoinTransaction(first.ID(), txID)

	hub.Disconnect(context.Background(), first.ID())
	if got := hub.PresenceState().Totals[enums.ActorKindPlayer]; got != 0 {
		t.Fatalf("player should be gone after disconnect, totals %d", got)
	}

	second := newFakeConn("conn-b")
	hub.Attach(second)
	result := hub.RegisterActor(context.Background(), identity, second.ID())

	if !result.Recovered {
		t.Fatal("reconnect within grace must recover")
	}
	if len(result.TransactionsRecovered) != 1 || result.TransactionsRecovered[0] != txID {
		t.Fatalf("recovered %v", result.TransactionsRecovered)
	}
	txRooms := hub.TransactionRooms()
	if len(txRooms) != 1 || txRooms[0].TransactionID != txID {
		t.Fatalf("transaction room not restored: %+v", txRooms)
	}
}

func TestCashierPlacementAndStatusToggle(t *testing.T) {
	hub := newTestHub(t)
	cashier := registry.Identity{Kind: enums.ActorKindCashier, ID: "c-1"}

	conn := newFakeConn("conn-c")
	hub.Attach(conn)
	hub.RegisterActor(context.Background(), cashier, conn.ID())

	cashiers := hub.Cashiers()
	if len(cashiers) != 1 || cashiers[0].Status != enums.CashierStatusAvailable {
		t.Fatalf("cashier should start available: %+v", cashiers)
	}

	if err := hub.SetCashierStatus(conn.ID(), enums.CashierStatusBusy); err != nil {
		t.Fatal(err)
	}
	cashiers = hub.Cashiers()
	if len(cashiers) != 1 || cashiers[0].Status != enums.CashierStatusBusy {
		t.Fatalf("cashier should read busy after toggle: %+v", cashiers)
	}
}

func TestEvictionPreservesCashierBusyStatus(t *testing.T) {
	hub := newTestHub(t)
	cashier := registry.Identity{Kind: enums.ActorKindCashier, ID: "c-1"}

	first := newFakeConn("conn-old")
	hub.Attach(first)
	hub.RegisterActor(context.Background(), cashier, first.ID())
	if err := hub.SetCashierStatus(first.ID(), enums.CashierStatusBusy); err != nil {
		t.Fatal(err)
	}

	second := newFakeConn("conn-new")
	hub.Attach(second)
	hub.RegisterActor(context.Background(), cashier, second.ID())

	if !first.isClosed() {
		t.Fatal("prior session should be closed")
	}
	cashiers := hub.Cashiers()
	if len(cashiers) != 1 || cashiers[0].Status != enums.CashierStatusBusy {
		t.Fatalf("replacement session should keep the busy status: %+v", cashiers)
	}
}

func TestSetCashierStatusRequiresCashier(t *testing.T) {
	hub := newTestHub(t)
	conn := newFakeConn("conn-p")
	hub.Attach(conn)
	hub.RegisterActor(context.Background(), playerIdentity("tg-1"), conn.ID())

	err := hub.SetCashierStatus(conn.ID(), enums.CashierStatusBusy)
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestPresencePushedToDashboard(t *testing.T) {
	hub := newTestHub(t)

	admin := newFakeConn("conn-admin")
	hub.Attach(admin)
	hub.RegisterActor(context.Background(), registry.Identity{Kind: enums.ActorKindAdmin, ID: "a-1"}, admin.ID())
	hub.JoinDashboard(admin.ID())

	player := newFakeConn("conn-p")
	hub.Attach(player)
	hub.RegisterActor(context.Background(), playerIdentity("tg-1"), player.ID())

	if !admin.received(EventPresenceUpdate) {
		t.Fatal("dashboard member should receive presence updates")
	}
}

func TestCleanupOrphansThroughHub(t *testing.T) {
	hub := newTestHub(t)

	conn := newFakeConn("conn-p")
	hub.Attach(conn)
	hub.RegisterActor(context.Background(), playerIdentity("tg-1"), conn.ID())

	result := hub.CleanupOrphans(context.Background())
	if result.Cleaned != 0 {
		t.Fatalf("no orphans expected, cleaned %d", result.Cleaned)
	}
	// Pools and dashboard must survive every sweep.
	if result.ProtectedSkipped != 3 {
		t.Fatalf("protected rooms skipped = %d", result.ProtectedSkipped)
	}
}
