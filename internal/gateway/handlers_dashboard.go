package gateway

import (
	"context"

	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
)

func requireStaff(ec *EventContext) error {
	if !ec.Identity.Kind.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}
	return nil
}

func (d *Dispatcher) handleDashboardJoin(ctx context.Context, ec *EventContext) (any, error) {
	if err := requireStaff(ec); err != nil {
		return nil, err
	}
	state := d.hub.JoinDashboard(ec.Conn.ID())
	return map[string]any{"dashboardConnected": true, "state": state}, nil
}

func (d *Dispatcher) handleDashboardState(ctx context.Context, ec *EventContext) (any, error) {
	if err := requireStaff(ec); err != nil {
		return nil, err
	}
	return d.hub.PresenceState(), nil
}

func (d *Dispatcher) handleDashboardCashiers(ctx context.Context, ec *EventContext) (any, error) {
	if err := requireStaff(ec); err != nil {
		return nil, err
	}
	return map[string]any{"cashiers": d.hub.Cashiers()}, nil
}

func (d *Dispatcher) handleDashboardTransactions(ctx context.Context, ec *EventContext) (any, error) {
	if err := requireStaff(ec); err != nil {
		return nil, err
	}
	return map[string]any{"transactionRooms": d.hub.TransactionRooms()}, nil
}

func (d *Dispatcher) handleRoomsDiagnose(ctx context.Context, ec *EventContext) (any, error) {
	if err := requireStaff(ec); err != nil {
		return nil, err
	}
	return d.hub.Diagnose(), nil
}

func (d *Dispatcher) handleRoomsCleanup(ctx context.Context, ec *EventContext) (any, error) {
	if err := requireStaff(ec); err != nil {
		return nil, err
	}
	return d.hub.CleanupOrphans(ctx), nil
}
