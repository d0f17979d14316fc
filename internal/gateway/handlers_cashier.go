package gateway

import (
	"context"

	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
)

type setStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=available busy"`
}

type setStatusResponse struct {
	StatusChanged bool   `json:"statusChanged"`
	Status        string `json:"status"`
}

func (d *Dispatcher) handleSetStatus(ctx context.Context, ec *EventContext) (any, error) {
	var payload setStatusPayload
	if err := bindPayload(ec.Payload, &payload); err != nil {
		return nil, err
	}

	status := enums.CashierStatus(payload.Status)
	if err := d.hub.SetCashierStatus(ec.Conn.ID(), status); err != nil {
		return nil, err
	}
	return setStatusResponse{StatusChanged: true, Status: payload.Status}, nil
}
