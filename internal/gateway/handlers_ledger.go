package gateway

import (
	"context"

	"github.com/cashlinkhq/cashlink-backend/internal/ledger"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ledgerApplyPayload struct {
	Delta         string `json:"delta" validate:"required"`
	Kind          string `json:"kind" validate:"required,oneof=deposit withdrawal manual_adjustment"`
	TransactionID string `json:"transactionId" validate:"omitempty,uuid"`
	Description   string `json:"description" validate:"omitempty,max=256"`
	// CashierID targets another cashier's account; admin only.
	CashierID string `json:"cashierId" validate:"omitempty,uuid"`
}

type ledgerHistoryPayload struct {
	Limit     int    `json:"limit" validate:"omitempty,min=1,max=200"`
	CashierID string `json:"cashierId" validate:"omitempty,uuid"`
}

// resolveLedgerTarget picks the cash account an event operates on. Cashiers
// always act on their own account; admins must name one.
func resolveLedgerTarget(ec *EventContext, rawCashierID string) (uuid.UUID, error) {
	switch ec.Identity.Kind {
	case enums.ActorKindCashier:
		if rawCashierID != "" && rawCashierID != ec.Identity.ID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "cashiers operate on their own account")
		}
		return uuid.Parse(ec.Identity.ID)
	case enums.ActorKindAdmin:
		if rawCashierID == "" {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "cashierId is required for administrators")
		}
		return uuid.Parse(rawCashierID)
	default:
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "only staff operate the ledger")
	}
}

func (d *Dispatcher) handleLedgerApply(ctx context.Context, ec *EventContext) (any, error) {
	var payload ledgerApplyPayload
	if err := bindPayload(ec.Payload, &payload); err != nil {
		return nil, err
	}

	cashierID, err := resolveLedgerTarget(ec, payload.CashierID)
	if err != nil {
		return nil, err
	}

	delta, err := decimal.NewFromString(payload.Delta)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be a decimal number")
	}

	kind, err := enums.ParseLedgerEntryKind(payload.Kind)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	opts := ledger.ApplyOptions{Description: payload.Description}
	if payload.TransactionID != "" {
		txID, err := uuid.Parse(payload.TransactionID)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id must be a uuid")
		}
		opts.TransactionID = &txID
	}

	result, err := d.ledger.Apply(ctx, cashierID, delta, kind, opts)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) handleLedgerHistory(ctx context.Context, ec *EventContext) (any, error) {
	var payload ledgerHistoryPayload
	if err := bindPayload(ec.Payload, &payload); err != nil {
		return nil, err
	}

	cashierID, err := resolveLedgerTarget(ec, payload.CashierID)
	if err != nil {
		return nil, err
	}

	limit := payload.Limit
	if limit == 0 {
		limit = 50
	}

	entries, err := d.ledger.History(ctx, cashierID, limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"entries": entries}, nil
}
