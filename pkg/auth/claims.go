package auth

import (
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ActorTokenPayload captures the data available when minting a JWT for a
// staff member or bot.
type ActorTokenPayload struct {
	ActorID uuid.UUID
	Kind    enums.ActorKind
	JTI     string
}

// ActorTokenClaims represents the typed JWT presented by cashiers, admins,
// and bots on the socket auth events.
type ActorTokenClaims struct {
	ActorID uuid.UUID       `json:"actor_id"`
	Kind    enums.ActorKind `json:"kind"`
	jwt.RegisteredClaims
}
