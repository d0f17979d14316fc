package enums

import "fmt"

// CashierStatus is the availability state a cashier toggles between.
type CashierStatus string

const (
	CashierStatusAvailable CashierStatus = "available"
	CashierStatusBusy      CashierStatus = "busy"
)

var validCashierStatuses = []CashierStatus{
	CashierStatusAvailable,
	CashierStatusBusy,
}

// IsValid reports whether the value matches a known cashier status.
func (s CashierStatus) IsValid() bool {
	for _, candidate := range validCashierStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCashierStatus converts raw input into CashierStatus.
func ParseCashierStatus(value string) (CashierStatus, error) {
	for _, candidate := range validCashierStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cashier status %q", value)
}
