package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is an end user identified by their external messaging-platform id.
type Player struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalID    string     `gorm:"column:external_id;type:text;not null;uniqueIndex"`
	DisplayName   string     `gorm:"column:display_name;not null"`
	AuthProofHash string     `gorm:"column:auth_proof_hash;not null"`
	IsActive      bool       `gorm:"column:is_active;not null;default:true"`
	LastSeenAt    *time.Time `gorm:"column:last_seen_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
