package transactions

import (
	"context"
	"time"

	"github.com/cashlinkhq/cashlink-backend/pkg/db/models"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads and maintains the cash transaction records the realtime
// core coordinates around.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.CashTransaction, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, cashierID *uuid.UUID) error
	// CancelStalePending cancels pending transactions untouched for longer
	// than maxAge and returns how many rows changed.
	CancelStalePending(ctx context.Context, maxAge time.Duration) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transactions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CashTransaction, error) {
	var tx models.CashTransaction
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.TransactionStatus, cashierID *uuid.UUID) error {
	updates := map[string]any{"status": status}
	if cashierID != nil {
		updates["cashier_id"] = *cashierID
	}
	return r.db.WithContext(ctx).
		Model(&models.CashTransaction{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CancelStalePending(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	result := r.db.WithContext(ctx).
		Model(&models.CashTransaction{}).
		Where("status = ?", enums.TransactionStatusPending).
		Where("updated_at < ?", cutoff).
		Update("status", enums.TransactionStatusCanceled)
	return result.RowsAffected, result.Error
}
