package gateway

import (
	"context"

	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
)

type transactionRefPayload struct {
	TransactionID string `json:"transactionId" validate:"required,uuid"`
}

type transactionJoinResponse struct {
	Joined        bool   `json:"joined"`
	TransactionID string `json:"transactionId"`
}

type transactionLeaveResponse struct {
	Left          bool   `json:"left"`
	TransactionID string `json:"transactionId"`
}

func (d *Dispatcher) handleTransactionJoin(ctx context.Context, ec *EventContext) (any, error) {
	var payload transactionRefPayload
	if err := bindPayload(ec.Payload, &payload); err != nil {
		return nil, err
	}

	tx, err := d.transactions.Get(ctx, payload.TransactionID)
	if err != nil {
		return nil, err
	}
	if err := d.transactions.AuthorizeJoin(ctx, tx, ec.Identity.Kind, ec.Identity.ID); err != nil {
		return nil, err
	}

	d.hub.JoinTransaction(ec.Conn.ID(), tx.ID.String())
	return transactionJoinResponse{Joined: true, TransactionID: tx.ID.String()}, nil
}

func (d *Dispatcher) handleTransactionLeave(ctx context.Context, ec *EventContext) (any, error) {
	var payload transactionRefPayload
	if err := bindPayload(ec.Payload, &payload); err != nil {
		return nil, err
	}

	d.hub.LeaveTransaction(ec.Conn.ID(), payload.TransactionID)
	return transactionLeaveResponse{Left: true, TransactionID: payload.TransactionID}, nil
}

type transactionUpdatePayload struct {
	TransactionID string `json:"transactionId" validate:"required,uuid"`
	Status        string `json:"status" validate:"required,oneof=pending assigned completed canceled"`
	CashierID     string `json:"cashierId" validate:"omitempty,uuid"`
}

type transactionUpdateResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
	Notified      int    `json:"notified"`
}

// handleTransactionUpdate lets the bot push a status change to everyone in
// the transaction's room.
func (d *Dispatcher) handleTransactionUpdate(ctx context.Context, ec *EventContext) (any, error) {
	if ec.Identity.Kind != enums.ActorKindBot {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only bots push transaction updates")
	}

	var payload transactionUpdatePayload
	if err := bindPayload(ec.Payload, &payload); err != nil {
		return nil, err
	}

	status, err := enums.ParseTransactionStatus(payload.Status)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	tx, err := d.transactions.AdvanceStatus(ctx, payload.TransactionID, status, payload.CashierID)
	if err != nil {
		return nil, err
	}

	notified := d.hub.BroadcastToTransaction(tx.ID.String(), "transaction:update", map[string]any{
		"transactionId": tx.ID.String(),
		"kind":          tx.Kind,
		"status":        tx.Status,
		"amount":        tx.Amount,
	})
	return transactionUpdateResponse{TransactionID: tx.ID.String(), Status: string(tx.Status), Notified: notified}, nil
}
