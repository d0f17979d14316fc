package actors

import (
	"context"

	"github.com/cashlinkhq/cashlink-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository looks up the three persisted actor populations.
type Repository interface {
	FindPlayerByExternalID(ctx context.Context, externalID string) (*models.Player, error)
	TouchPlayerSeen(ctx context.Context, playerID uuid.UUID) error
	FindStaffByID(ctx context.Context, id uuid.UUID) (*models.Staff, error)
	TouchStaffLogin(ctx context.Context, staffID uuid.UUID) error
	FindBotByID(ctx context.Context, id uuid.UUID) (*models.Bot, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an actors repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindPlayerByExternalID(ctx context.Context, externalID string) (*models.Player, error) {
	var player models.Player
	if err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *repository) TouchPlayerSeen(ctx context.Context, playerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("id = ?", playerID).
		UpdateColumn("last_seen_at", gorm.Expr("NOW()")).Error
}

func (r *repository) FindStaffByID(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	var staff models.Staff
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&staff).Error; err != nil {
		return nil, err
	}
	return &staff, nil
}

func (r *repository) TouchStaffLogin(ctx context.Context, staffID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Staff{}).
		Where("id = ?", staffID).
		UpdateColumn("last_login_at", gorm.Expr("NOW()")).Error
}

func (r *repository) FindBotByID(ctx context.Context, id uuid.UUID) (*models.Bot, error) {
	var bot models.Bot
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&bot).Error; err != nil {
		return nil, err
	}
	return &bot, nil
}
