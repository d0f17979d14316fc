package models

import (
	"time"

	"github.com/google/uuid"
)

// Bot is a machine client that pushes transaction events into the gateway.
// Bots authenticate with a signed actor token, same as staff.
type Bot struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"type:text;not null;uniqueIndex"`
	IsEnabled bool      `gorm:"column:is_enabled;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
