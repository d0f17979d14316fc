package models

import (
	"time"

	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry records one immutable balance mutation on a cashier's cash
// account. Entries are append-only: never updated, never deleted.
type LedgerEntry struct {
	ID            uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CashierID     uuid.UUID             `gorm:"column:cashier_id;type:uuid;not null;index"`
	Delta         decimal.Decimal       `gorm:"column:delta;type:numeric(14,2);not null"`
	BalanceBefore decimal.Decimal       `gorm:"column:balance_before;type:numeric(14,2);not null"`
	BalanceAfter  decimal.Decimal       `gorm:"column:balance_after;type:numeric(14,2);not null"`
	Kind          enums.LedgerEntryKind `gorm:"column:kind;type:ledger_entry_kind_enum;not null"`
	TransactionID *uuid.UUID            `gorm:"column:transaction_id;type:uuid"`
	Description   string                `gorm:"column:description;not null"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}
