package enums

import "fmt"

// LedgerEntryKind maps to the ledger_entry_kind_enum enum in Postgres.
type LedgerEntryKind string

const (
	LedgerEntryKindDeposit          LedgerEntryKind = "deposit"
	LedgerEntryKindWithdrawal       LedgerEntryKind = "withdrawal"
	LedgerEntryKindManualAdjustment LedgerEntryKind = "manual_adjustment"
)

var validLedgerEntryKinds = []LedgerEntryKind{
	LedgerEntryKindDeposit,
	LedgerEntryKindWithdrawal,
	LedgerEntryKindManualAdjustment,
}

// IsValid reports whether the value matches the canonical ledger entry enum.
func (k LedgerEntryKind) IsValid() bool {
	for _, candidate := range validLedgerEntryKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// DefaultDescription is used when the caller omits a description.
func (k LedgerEntryKind) DefaultDescription() string {
	switch k {
	case LedgerEntryKindDeposit:
		return "Deposit processed"
	case LedgerEntryKindWithdrawal:
		return "Withdrawal processed"
	case LedgerEntryKindManualAdjustment:
		return "Manual balance adjustment"
	}
	return ""
}

// ParseLedgerEntryKind converts raw input into LedgerEntryKind.
func ParseLedgerEntryKind(value string) (LedgerEntryKind, error) {
	for _, candidate := range validLedgerEntryKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry kind %q", value)
}
