package models

import (
	"time"

	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashTransaction is the deposit/withdrawal record produced by the HTTP layer.
// The realtime core references it by id only; the ledger links entries to it.
type CashTransaction struct {
	ID        uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Kind      enums.TransactionKind   `gorm:"column:kind;type:transaction_kind_enum;not null"`
	Status    enums.TransactionStatus `gorm:"column:status;type:transaction_status_enum;not null;default:pending"`
	PlayerID  uuid.UUID               `gorm:"column:player_id;type:uuid;not null;index"`
	CashierID *uuid.UUID              `gorm:"column:cashier_id;type:uuid;index"`
	Amount    decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
