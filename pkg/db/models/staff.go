package models

import (
	"time"

	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	"github.com/google/uuid"
)

// Staff is a back-office user: a cashier or an administrator.
type Staff struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string          `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string          `gorm:"column:password_hash;not null"`
	FullName     string          `gorm:"column:full_name;not null"`
	Role         enums.StaffRole `gorm:"column:role;type:staff_role_enum;not null"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time      `gorm:"column:last_login_at"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
