package enums

import "fmt"

// ActorKind tags every connected identity with its domain role.
type ActorKind string

const (
	ActorKindPlayer  ActorKind = "player"
	ActorKindCashier ActorKind = "cashier"
	ActorKindAdmin   ActorKind = "admin"
	ActorKindBot     ActorKind = "bot"
)

var validActorKinds = []ActorKind{
	ActorKindPlayer,
	ActorKindCashier,
	ActorKindAdmin,
	ActorKindBot,
}

// IsValid reports whether the value matches a known actor kind.
func (k ActorKind) IsValid() bool {
	for _, candidate := range validActorKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// IsStaff reports whether the kind may access staff-only surfaces
// (dashboard, room diagnostics).
func (k ActorKind) IsStaff() bool {
	return k == ActorKindCashier || k == ActorKindAdmin
}

// SupportsRecovery reports whether disconnects of this kind open a
// reconnect grace window. Admin and bot sessions reconnect cold.
func (k ActorKind) SupportsRecovery() bool {
	return k == ActorKindPlayer || k == ActorKindCashier
}

// ParseActorKind converts raw input into ActorKind.
func ParseActorKind(value string) (ActorKind, error) {
	for _, candidate := range validActorKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor kind %q", value)
}
