package rooms

import "strings"

// Room keys are structured strings. Pools and the dashboard are protected:
// they survive emptiness because clients expect to join them at any time.
// Transaction rooms are ephemeral and are deleted once empty.
const (
	PoolAvailable = "cashier-pool:available"
	PoolBusy      = "cashier-pool:busy"
	Dashboard     = "dashboard"

	playerPrefix      = "player:"
	transactionPrefix = "transaction:"
)

// PlayerRoom returns the personal room key for a player's external id.
func PlayerRoom(externalID string) string {
	return playerPrefix + externalID
}

// TransactionRoom returns the participant room key for a transaction id.
func TransactionRoom(transactionID string) string {
	return transactionPrefix + transactionID
}

// IsTransactionRoom reports whether the key names a transaction room.
func IsTransactionRoom(key string) bool {
	return strings.HasPrefix(key, transactionPrefix)
}

// TransactionID extracts the transaction id from a transaction room key.
func TransactionID(key string) (string, bool) {
	if !IsTransactionRoom(key) {
		return "", false
	}
	return strings.TrimPrefix(key, transactionPrefix), true
}

func isProtectedKey(key string) bool {
	switch key {
	case PoolAvailable, PoolBusy, Dashboard:
		return true
	}
	return false
}
