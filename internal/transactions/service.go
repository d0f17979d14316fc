package transactions

import (
	"context"
	"fmt"

	"github.com/cashlinkhq/cashlink-backend/internal/actors"
	"github.com/cashlinkhq/cashlink-backend/pkg/db"
	"github.com/cashlinkhq/cashlink-backend/pkg/db/models"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
	"github.com/google/uuid"
)

// Service validates transaction references arriving over the socket.
type Service interface {
	// Get resolves a raw transaction id to its persisted record.
	Get(ctx context.Context, rawID string) (*models.CashTransaction, error)
	// AuthorizeJoin decides whether the actor may enter the transaction's
	// room. Players may only join their own transactions; cashiers may join
	// unassigned transactions or ones assigned to them; admins always may;
	// bots never do.
	AuthorizeJoin(ctx context.Context, tx *models.CashTransaction, kind enums.ActorKind, actorID string) error
	// AdvanceStatus moves the transaction to a new status, optionally
	// assigning a cashier, and returns the updated record.
	AdvanceStatus(ctx context.Context, rawID string, status enums.TransactionStatus, rawCashierID string) (*models.CashTransaction, error)
}

type service struct {
	repo    Repository
	players actors.Repository
}

// Params wires the transactions service dependencies.
type Params struct {
	Repo    Repository
	Players actors.Repository
}

func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	if params.Players == nil {
		return nil, fmt.Errorf("actors repository required")
	}
	return &service{repo: params.Repo, players: params.Players}, nil
}

func (s *service) Get(ctx context.Context, rawID string) (*models.CashTransaction, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id must be a uuid")
	}

	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return tx, nil
}

func (s *service) AuthorizeJoin(ctx context.Context, tx *models.CashTransaction, kind enums.ActorKind, actorID string) error {
	switch kind {
	case enums.ActorKindAdmin:
		return nil

	case enums.ActorKindCashier:
		cashierID, err := uuid.Parse(actorID)
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "cashier id must be a uuid")
		}
		if tx.CashierID == nil || *tx.CashierID == cashierID {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "transaction is assigned to another cashier")

	case enums.ActorKindPlayer:
		player, err := s.players.FindPlayerByExternalID(ctx, actorID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to another player")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load player")
		}
		if player.ID != tx.PlayerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to another player")
		}
		return nil

	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "bots cannot join transaction rooms")
	}
}

func (s *service) AdvanceStatus(ctx context.Context, rawID string, status enums.TransactionStatus, rawCashierID string) (*models.CashTransaction, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction status %q", status))
	}

	tx, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}

	var cashierID *uuid.UUID
	if rawCashierID != "" {
		parsed, err := uuid.Parse(rawCashierID)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cashier id must be a uuid")
		}
		cashierID = &parsed
	}

	if err := s.repo.UpdateStatus(ctx, tx.ID, status, cashierID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transaction status")
	}

	tx.Status = status
	if cashierID != nil {
		tx.CashierID = cashierID
	}
	return tx, nil
}
