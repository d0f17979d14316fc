package actors

import (
	"context"
	"fmt"

	"github.com/cashlinkhq/cashlink-backend/pkg/auth"
	"github.com/cashlinkhq/cashlink-backend/pkg/config"
	"github.com/cashlinkhq/cashlink-backend/pkg/db"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
	"github.com/cashlinkhq/cashlink-backend/pkg/logger"
	"github.com/cashlinkhq/cashlink-backend/pkg/security"
)

// AuthenticatedActor is the outcome of a successful socket authentication.
type AuthenticatedActor struct {
	Kind        enums.ActorKind
	ID          string
	DisplayName string
}

// Service authenticates the actor populations that connect to the gateway.
type Service interface {
	// AuthenticatePlayer verifies the player's externally issued auth proof.
	AuthenticatePlayer(ctx context.Context, externalID, authProof string) (*AuthenticatedActor, error)
	// AuthenticateStaff validates a staff JWT and resolves the cashier or
	// admin behind it. expectAdmin restricts the result to administrators.
	AuthenticateStaff(ctx context.Context, token string, expectAdmin bool) (*AuthenticatedActor, error)
	// AuthenticateBot validates a bot JWT against the bot registry.
	AuthenticateBot(ctx context.Context, token string) (*AuthenticatedActor, error)
}

type service struct {
	repo   Repository
	jwtCfg config.JWTConfig
	log    *logger.Logger
}

// Params wires the auth service dependencies.
type Params struct {
	Repo   Repository
	JWTCfg config.JWTConfig
	Log    *logger.Logger
}

func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("actors repository required")
	}
	if params.JWTCfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, jwtCfg: params.JWTCfg, log: params.Log}, nil
}

func (s *service) AuthenticatePlayer(ctx context.Context, externalID, authProof string) (*AuthenticatedActor, error) {
	if externalID == "" || authProof == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external id and auth proof are required")
	}

	player, err := s.repo.FindPlayerByExternalID(ctx, externalID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown player")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load player")
	}
	if !player.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "player is deactivated")
	}

	ok, err := security.VerifySecret(authProof, player.AuthProofHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "auth proof rejected")
	}

	if err := s.repo.TouchPlayerSeen(ctx, player.ID); err != nil {
		s.log.Warn(ctx, "touch player last seen failed: "+err.Error())
	}

	return &AuthenticatedActor{
		Kind:        enums.ActorKindPlayer,
		ID:          player.ExternalID,
		DisplayName: player.DisplayName,
	}, nil
}

func (s *service) AuthenticateStaff(ctx context.Context, token string, expectAdmin bool) (*AuthenticatedActor, error) {
	claims, err := auth.ParseActorToken(s.jwtCfg, token)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	if !claims.Kind.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token is not a staff token")
	}

	staff, err := s.repo.FindStaffByID(ctx, claims.ActorID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown staff member")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff")
	}
	if !staff.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff account is deactivated")
	}

	// The token's kind must still match the persisted role: a demoted admin
	// cannot ride an old token.
	kind := staff.Role.ActorKind()
	if kind != claims.Kind {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token role mismatch")
	}
	if expectAdmin && kind != enums.ActorKindAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required")
	}

	if err := s.repo.TouchStaffLogin(ctx, staff.ID); err != nil {
		s.log.Warn(ctx, "touch staff last login failed: "+err.Error())
	}

	return &AuthenticatedActor{
		Kind:        kind,
		ID:          staff.ID.String(),
		DisplayName: staff.FullName,
	}, nil
}

func (s *service) AuthenticateBot(ctx context.Context, token string) (*AuthenticatedActor, error) {
	claims, err := auth.ParseActorToken(s.jwtCfg, token)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	if claims.Kind != enums.ActorKindBot {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token is not a bot token")
	}

	bot, err := s.repo.FindBotByID(ctx, claims.ActorID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown bot")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bot")
	}
	if !bot.IsEnabled {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "bot is disabled")
	}

	return &AuthenticatedActor{
		Kind:        enums.ActorKindBot,
		ID:          bot.ID.String(),
		DisplayName: bot.Name,
	}, nil
}
