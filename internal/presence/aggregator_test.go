package presence

import (
	"reflect"
	"testing"

	"github.com/cashlinkhq/cashlink-backend/internal/registry"
	"github.com/cashlinkhq/cashlink-backend/internal/rooms"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
)

type nullSender struct{}

func (nullSender) Send(connectionID, event string, payload any) error { return nil }

func seed(t *testing.T) (*registry.Registry, *rooms.Fabric, *Aggregator) {
	t.Helper()
	reg := registry.New()
	fabric := rooms.New(nullSender{})
	return reg, fabric, New(reg, fabric)
}

func TestSnapshotReflectsRegistryAndFabric(t *testing.T) {
	reg, fabric, agg := seed(t)

	reg.Register(registry.Identity{Kind: enums.ActorKindPlayer, ID: "tg-1"}, "conn-p1")
	reg.Register(registry.Identity{Kind: enums.ActorKindPlayer, ID: "tg-2"}, "conn-p2")
	reg.Register(registry.Identity{Kind: enums.ActorKindCashier, ID: "c-1"}, "conn-c1")
	reg.Register(registry.Identity{Kind: enums.ActorKindCashier, ID: "c-2"}, "conn-c2")
	reg.Register(registry.Identity{Kind: enums.ActorKindAdmin, ID: "a-1"}, "conn-a1")

	fabric.Join(rooms.PoolAvailable, "conn-c1")
	fabric.Join(rooms.PoolBusy, "conn-c2")
	fabric.Join(rooms.TransactionRoom("T1"), "conn-p1")
	fabric.Join(rooms.TransactionRoom("T1"), "conn-c2")

	state := agg.Snapshot()

	if state.Totals[enums.ActorKindPlayer] != 2 || state.Totals[enums.ActorKindCashier] != 2 || state.Totals[enums.ActorKindAdmin] != 1 {
		t.Fatalf("totals: %+v", state.Totals)
	}
	wantCashiers := []CashierPresence{
		{ID: "c-1", Status: enums.CashierStatusAvailable},
		{ID: "c-2", Status: enums.CashierStatusBusy},
	}
	if !reflect.DeepEqual(state.Cashiers, wantCashiers) {
		t.Fatalf("cashiers: %+v", state.Cashiers)
	}
	if !reflect.DeepEqual(state.ConnectedPlayers, []string{"tg-1", "tg-2"}) {
		t.Fatalf("players: %+v", state.ConnectedPlayers)
	}
	if !reflect.DeepEqual(state.TransactionRooms, []TransactionRoomView{{TransactionID: "T1", Members: 2}}) {
		t.Fatalf("transaction rooms: %+v", state.TransactionRooms)
	}
}

func TestStatusToggleIsVisibleImmediately(t *testing.T) {
	reg, fabric, agg := seed(t)

	reg.Register(registry.Identity{Kind: enums.ActorKindCashier, ID: "c-1"}, "conn-c1")
	fabric.Join(rooms.PoolAvailable, "conn-c1")

	fabric.MoveBetweenPools("conn-c1", rooms.PoolAvailable, rooms.PoolBusy)

	cashiers := agg.Cashiers()
	if len(cashiers) != 1 || cashiers[0].Status != enums.CashierStatusBusy {
		t.Fatalf("cashier should read busy right after the toggle: %+v", cashiers)
	}
}

func TestSnapshotIgnoresStaleConnections(t *testing.T) {
	reg, fabric, agg := seed(t)

	reg.Register(registry.Identity{Kind: enums.ActorKindCashier, ID: "c-1"}, "conn-c1")
	fabric.Join(rooms.PoolAvailable, "conn-c1")

	// Simulate a disconnect that cleared the registry but not yet the pools:
	// the aggregator must not invent a cashier for an unbound connection.
	reg.Remove("conn-c1")

	if got := agg.Cashiers(); len(got) != 0 {
		t.Fatalf("stale pool member leaked into the view: %+v", got)
	}
}
