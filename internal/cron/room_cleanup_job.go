package cron

import (
	"context"
	"fmt"

	"github.com/cashlinkhq/cashlink-backend/internal/rooms"
	"github.com/cashlinkhq/cashlink-backend/pkg/logger"
)

// RoomCleaner sweeps orphaned rooms. Implemented by the gateway hub.
type RoomCleaner interface {
	CleanupOrphans(ctx context.Context) rooms.CleanupResult
}

// RoomCleanupJob periodically deletes empty unprotected rooms. Runs inside
// the gateway process because the rooms live in its memory.
type RoomCleanupJob struct {
	cleaner RoomCleaner
	logg    *logger.Logger
}

func NewRoomCleanupJob(cleaner RoomCleaner, logg *logger.Logger) (*RoomCleanupJob, error) {
	if cleaner == nil {
		return nil, fmt.Errorf("room cleaner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &RoomCleanupJob{cleaner: cleaner, logg: logg}, nil
}

func (j *RoomCleanupJob) Name() string {
	return "room-cleanup"
}

func (j *RoomCleanupJob) Run(ctx context.Context) error {
	result := j.cleaner.CleanupOrphans(ctx)
	ctx = j.logg.WithFields(ctx, map[string]any{
		"cleaned":                   result.Cleaned,
		"protected_skipped":         result.ProtectedSkipped,
		"with_participants_skipped": result.WithParticipantsSkipped,
	})
	j.logg.Info(ctx, "room sweep finished")
	return nil
}
