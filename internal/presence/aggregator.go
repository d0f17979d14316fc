package presence

import (
	"sort"

	"github.com/cashlinkhq/cashlink-backend/internal/registry"
	"github.com/cashlinkhq/cashlink-backend/internal/rooms"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
)

// CashierPresence is one cashier's entry in the dashboard view.
type CashierPresence struct {
	ID     string              `json:"id"`
	Status enums.CashierStatus `json:"status"`
}

// TransactionRoomView summarizes one live transaction room.
type TransactionRoomView struct {
	TransactionID string `json:"transactionId"`
	Members       int    `json:"members"`
}

// State is the dashboard snapshot. It is derived synchronously from the
// registry and fabric, so a consumer always sees the effect of the mutation
// it just triggered.
type State struct {
	Totals           map[enums.ActorKind]int `json:"totals"`
	Cashiers         []CashierPresence       `json:"cashiers"`
	ConnectedPlayers []string                `json:"connectedPlayers"`
	TransactionRooms []TransactionRoomView   `json:"transactionRooms"`
}

// Aggregator computes read-only dashboard views. It never mutates the
// registry or the fabric.
type Aggregator struct {
	registry *registry.Registry
	fabric   *rooms.Fabric
}

func New(reg *registry.Registry, fabric *rooms.Fabric) *Aggregator {
	return &Aggregator{registry: reg, fabric: fabric}
}

// Snapshot derives the full dashboard state.
func (a *Aggregator) Snapshot() State {
	state := State{
		Totals:           a.registry.CountByKind(),
		Cashiers:         a.Cashiers(),
		ConnectedPlayers: a.connectedPlayers(),
		TransactionRooms: a.TransactionRooms(),
	}
	return state
}

// Cashiers lists connected cashiers with their pool-derived status.
func (a *Aggregator) Cashiers() []CashierPresence {
	out := []CashierPresence{}
	for _, connectionID := range a.fabric.Members(rooms.PoolAvailable) {
		if identity, ok := a.registry.LookupActor(connectionID); ok && identity.Kind == enums.ActorKindCashier {
			out = append(out, CashierPresence{ID: identity.ID, Status: enums.CashierStatusAvailable})
		}
	}
	for _, connectionID := range a.fabric.Members(rooms.PoolBusy) {
		if identity, ok := a.registry.LookupActor(connectionID); ok && identity.Kind == enums.ActorKindCashier {
			out = append(out, CashierPresence{ID: identity.ID, Status: enums.CashierStatusBusy})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (a *Aggregator) connectedPlayers() []string {
	out := []string{}
	for _, conn := range a.registry.Connections() {
		if conn.Identity.Kind == enums.ActorKindPlayer {
			out = append(out, conn.Identity.ID)
		}
	}
	sort.Strings(out)
	return out
}

// TransactionRooms lists live transaction rooms with member counts.
func (a *Aggregator) TransactionRooms() []TransactionRoomView {
	counts := a.fabric.TransactionRooms()
	out := make([]TransactionRoomView, 0, len(counts))
	for txID, members := range counts {
		out = append(out, TransactionRoomView{TransactionID: txID, Members: members})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransactionID < out[j].TransactionID })
	return out
}
