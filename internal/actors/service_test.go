package actors

import (
	"context"
	"testing"
	"time"

	"github.com/cashlinkhq/cashlink-backend/pkg/auth"
	"github.com/cashlinkhq/cashlink-backend/pkg/config"
	"github.com/cashlinkhq/cashlink-backend/pkg/db/models"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
	"github.com/cashlinkhq/cashlink-backend/pkg/logger"
	"github.com/cashlinkhq/cashlink-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testJWTCfg = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "cashlink-test",
	ExpirationMinutes: 60,
}

type fakeRepo struct {
	players map[string]*models.Player
	staff   map[uuid.UUID]*models.Staff
	bots    map[uuid.UUID]*models.Bot

	playerTouches int
	staffTouches  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		players: map[string]*models.Player{},
		staff:   map[uuid.UUID]*models.Staff{},
		bots:    map[uuid.UUID]*models.Bot{},
	}
}

func (f *fakeRepo) FindPlayerByExternalID(ctx context.Context, externalID string) (*models.Player, error) {
	if player, ok := f.players[externalID]; ok {
		return player, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) TouchPlayerSeen(ctx context.Context, playerID uuid.UUID) error {
	f.playerTouches++
	return nil
}

func (f *fakeRepo) FindStaffByID(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	if staff, ok := f.staff[id]; ok {
		return staff, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) TouchStaffLogin(ctx context.Context, staffID uuid.UUID) error {
	f.staffTouches++
	return nil
}

func (f *fakeRepo) FindBotByID(ctx context.Context, id uuid.UUID) (*models.Bot, error) {
	if bot, ok := f.bots[id]; ok {
		return bot, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func newTestService(t *testing.T, repo *fakeRepo) Service {
	t.Helper()
	svc, err := NewService(Params{
		Repo:   repo,
		JWTCfg: testJWTCfg,
		Log:    logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
	})
	require.NoError(t, err)
	return svc
}

func mintToken(t *testing.T, actorID uuid.UUID, kind enums.ActorKind) string {
	t.Helper()
	token, err := auth.MintActorToken(testJWTCfg, time.Now(), auth.ActorTokenPayload{ActorID: actorID, Kind: kind})
	require.NoError(t, err)
	return token
}

func TestAuthenticatePlayer(t *testing.T) {
	repo := newFakeRepo()
	hash, err := security.HashSecret("proof-123", config.PasswordConfig{})
	require.NoError(t, err)
	repo.players["tg-42"] = &models.Player{
		ID:            uuid.New(),
		ExternalID:    "tg-42",
		DisplayName:   "Alice",
		AuthProofHash: hash,
		IsActive:      true,
	}
	svc := newTestService(t, repo)

	actor, err := svc.AuthenticatePlayer(context.Background(), "tg-42", "proof-123")
	require.NoError(t, err)
	assert.Equal(t, enums.ActorKindPlayer, actor.Kind)
	assert.Equal(t, "tg-42", actor.ID)
	assert.Equal(t, 1, repo.playerTouches)

	_, err = svc.AuthenticatePlayer(context.Background(), "tg-42", "wrong-proof")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.AuthenticatePlayer(context.Background(), "tg-unknown", "proof-123")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestAuthenticatePlayerDeactivated(t *testing.T) {
	repo := newFakeRepo()
	hash, err := security.HashSecret("proof", config.PasswordConfig{})
	require.NoError(t, err)
	repo.players["tg-9"] = &models.Player{ID: uuid.New(), ExternalID: "tg-9", AuthProofHash: hash, IsActive: false}
	svc := newTestService(t, repo)

	_, err = svc.AuthenticatePlayer(context.Background(), "tg-9", "proof")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestAuthenticateStaff(t *testing.T) {
	repo := newFakeRepo()
	cashierID := uuid.New()
	repo.staff[cashierID] = &models.Staff{
		ID:       cashierID,
		FullName: "Casey",
		Role:     enums.StaffRoleCashier,
		IsActive: true,
	}
	svc := newTestService(t, repo)

	actor, err := svc.AuthenticateStaff(context.Background(), mintToken(t, cashierID, enums.ActorKindCashier), false)
	require.NoError(t, err)
	assert.Equal(t, enums.ActorKindCashier, actor.Kind)
	assert.Equal(t, cashierID.String(), actor.ID)
	assert.Equal(t, 1, repo.staffTouches)

	// Cashier token cannot pass the admin gate.
	_, err = svc.AuthenticateStaff(context.Background(), mintToken(t, cashierID, enums.ActorKindCashier), true)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.AuthenticateStaff(context.Background(), "not-a-token", false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestAuthenticateStaffRoleMismatch(t *testing.T) {
	repo := newFakeRepo()
	staffID := uuid.New()
	// Persisted role demoted to cashier after an admin token was minted.
	repo.staff[staffID] = &models.Staff{ID: staffID, Role: enums.StaffRoleCashier, IsActive: true}
	svc := newTestService(t, repo)

	_, err := svc.AuthenticateStaff(context.Background(), mintToken(t, staffID, enums.ActorKindAdmin), false)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestAuthenticateBot(t *testing.T) {
	repo := newFakeRepo()
	botID := uuid.New()
	repo.bots[botID] = &models.Bot{ID: botID, Name: "tx-bot", IsEnabled: true}
	svc := newTestService(t, repo)

	actor, err := svc.AuthenticateBot(context.Background(), mintToken(t, botID, enums.ActorKindBot))
	require.NoError(t, err)
	assert.Equal(t, enums.ActorKindBot, actor.Kind)
	assert.Equal(t, "tx-bot", actor.DisplayName)

	// Staff tokens are not bot tokens.
	_, err = svc.AuthenticateBot(context.Background(), mintToken(t, botID, enums.ActorKindCashier))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	repo.bots[botID].IsEnabled = false
	_, err = svc.AuthenticateBot(context.Background(), mintToken(t, botID, enums.ActorKindBot))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
