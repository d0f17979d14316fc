package gateway

import (
	"context"

	"github.com/cashlinkhq/cashlink-backend/internal/actors"
	"github.com/cashlinkhq/cashlink-backend/internal/recovery"
	"github.com/cashlinkhq/cashlink-backend/internal/registry"
)

type authPlayerPayload struct {
	ExternalID string `json:"externalId" validate:"required"`
	AuthProof  string `json:"authProof" validate:"required"`
}

type authTokenPayload struct {
	Token string `json:"token" validate:"required"`
}

type authUser struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	DisplayName string `json:"displayName,omitempty"`
}

type authResponse struct {
	Success  bool             `json:"success"`
	User     authUser         `json:"user"`
	Recovery *recovery.Result `json:"recovery,omitempty"`
}

func (d *Dispatcher) finishAuth(ctx context.Context, ec *EventContext, actor *actors.AuthenticatedActor, withRecovery bool) (any, error) {
	identity := registry.Identity{Kind: actor.Kind, ID: actor.ID}
	result := d.hub.RegisterActor(ctx, identity, ec.Conn.ID())

	d.log.Info(ctx, "actor authenticated")

	resp := authResponse{
		Success: true,
		User:    authUser{ID: actor.ID, Kind: string(actor.Kind), DisplayName: actor.DisplayName},
	}
	if withRecovery {
		resp.Recovery = &result
	}
	return resp, nil
}

func (d *Dispatcher) handleAuthPlayer(ctx context.Context, ec *EventContext) (any, error) {
	var payload authPlayerPayload
	if err := bindPayload(ec.Payload, &payload); err != nil {
		return nil, err
	}

	actor, err := d.actors.AuthenticatePlayer(ctx, payload.ExternalID, payload.AuthProof)
	if err != nil {
		return nil, err
	}
	return d.finishAuth(ctx, ec, actor, true)
}

func (d *Dispatcher) handleAuthStaff(ctx context.Context, ec *EventContext) (any, error) {
	var payload authTokenPayload
	if err := bindPayload(ec.Payload, &payload); err != nil {
		return nil, err
	}

	actor, err := d.actors.AuthenticateStaff(ctx, payload.Token, false)
	if err != nil {
		return nil, err
	}
	return d.finishAuth(ctx, ec, actor, true)
}

func (d *Dispatcher) handleAuthBot(ctx context.Context, ec *EventContext) (any, error) {
	var payload authTokenPayload
	if err := bindPayload(ec.Payload, &payload); err != nil {
		return nil, err
	}

	actor, err := d.actors.AuthenticateBot(ctx, payload.Token)
	if err != nil {
		return nil, err
	}
	return d.finishAuth(ctx, ec, actor, false)
}
