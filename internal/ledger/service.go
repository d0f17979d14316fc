package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/cashlinkhq/cashlink-backend/pkg/db"
	"github.com/cashlinkhq/cashlink-backend/pkg/db/models"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ApplyOptions carries the optional fields of one balance mutation.
type ApplyOptions struct {
	TransactionID *uuid.UUID
	Description   string
}

// ApplyResult reports one committed balance mutation.
type ApplyResult struct {
	BalanceBefore decimal.Decimal     `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal     `json:"balanceAfter"`
	Entry         *models.LedgerEntry `json:"entry"`
}

// Service defines the balance ledger operations.
type Service interface {
	// Apply mutates the cashier's balance by delta and appends the matching
	// ledger entry in one atomic unit. A result that would go negative fails
	// with INSUFFICIENT_BALANCE and writes nothing.
	Apply(ctx context.Context, cashierID uuid.UUID, delta decimal.Decimal, kind enums.LedgerEntryKind, opts ApplyOptions) (*ApplyResult, error)
	// History returns the cashier's most recent entries, newest first.
	History(ctx context.Context, cashierID uuid.UUID, limit int) ([]models.LedgerEntry, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	runner txRunner
	repo   Repository

	// apply calls for one cashier serialize; different cashiers run in
	// parallel. The storage-level row lock is the real guard, this keeps
	// contention out of the database.
	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

// NewService wires a ledger service with the provided transaction runner and
// repository.
func NewService(runner txRunner, repo Repository) (Service, error) {
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{
		runner: runner,
		repo:   repo,
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}, nil
}

func (s *service) lockFor(cashierID uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[cashierID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[cashierID] = mu
	}
	return mu
}

func (s *service) Apply(ctx context.Context, cashierID uuid.UUID, delta decimal.Decimal, kind enums.LedgerEntryKind, opts ApplyOptions) (*ApplyResult, error) {
	if cashierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cashier id is required")
	}
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger entry kind %q", kind))
	}

	description := opts.Description
	if description == "" {
		description = kind.DefaultDescription()
	}

	mu := s.lockFor(cashierID)
	mu.Lock()
	defer mu.Unlock()

	var result *ApplyResult
	err := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		account, err := repo.GetAccountForUpdate(ctx, cashierID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cash account not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cash account")
		}

		balanceBefore := account.Balance
		balanceAfter := balanceBefore.Add(delta)
		if balanceAfter.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "balance cannot go negative").
				WithDetails(map[string]string{
					"balance":   balanceBefore.String(),
					"requested": delta.String(),
				})
		}

		entry := &models.LedgerEntry{
			CashierID:     cashierID,
			Delta:         delta,
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceAfter,
			Kind:          kind,
			TransactionID: opts.TransactionID,
			Description:   description,
		}

		if err := repo.UpdateBalance(ctx, account.ID, balanceAfter); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist balance")
		}
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}

		result = &ApplyResult{
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceAfter,
			Entry:         entry,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) History(ctx context.Context, cashierID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	if cashierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cashier id is required")
	}
	entries, err := s.repo.ListEntries(ctx, cashierID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, nil
}
