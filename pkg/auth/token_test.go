package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/cashlinkhq/cashlink-backend/pkg/config"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	"github.com/google/uuid"
)

func TestMintAndParseActorToken(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "cashlink",
		ExpirationMinutes: 30,
	}
	now := time.Now().UTC()
	actorID := uuid.New()

	token, err := MintActorToken(cfg, now, ActorTokenPayload{
		ActorID: actorID,
		Kind:    enums.ActorKindCashier,
	})
	if err != nil {
		t.Fatalf("mint actor token: %v", err)
	}

	claims, err := ParseActorToken(cfg, token)
	if err != nil {
		t.Fatalf("parse actor token: %v", err)
	}

	if claims.ActorID != actorID {
		t.Fatalf("expected actor_id %s, got %s", actorID, claims.ActorID)
	}
	if claims.Kind != enums.ActorKindCashier {
		t.Fatalf("unexpected kind %s", claims.Kind)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("expected issuer %s, got %s", cfg.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected generated jti")
	}

	exp := now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)
	diff := claims.ExpiresAt.Sub(exp)
	if diff < 0 {
		diff = -diff
	}
	if diff >= time.Second {
		t.Fatalf("expected exp roughly %v, got %v (diff %v)", exp.UTC(), claims.ExpiresAt.UTC(), diff)
	}
}

func TestParseActorTokenInvalidSignature(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "cashlink",
		ExpirationMinutes: 10,
	}

	token, err := MintActorToken(cfg, time.Now(), ActorTokenPayload{
		ActorID: uuid.New(),
		Kind:    enums.ActorKindAdmin,
	})
	if err != nil {
		t.Fatalf("mint actor token: %v", err)
	}

	if _, err := ParseActorToken(cfg, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseActorTokenExpired(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "cashlink",
		ExpirationMinutes: 15,
	}

	token, err := MintActorToken(cfg, time.Now().Add(-time.Hour), ActorTokenPayload{
		ActorID: uuid.New(),
		Kind:    enums.ActorKindBot,
	})
	if err != nil {
		t.Fatalf("mint actor token: %v", err)
	}

	_, err = ParseActorToken(cfg, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseActorTokenWrongIssuer(t *testing.T) {
	mintCfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "someone-else",
		ExpirationMinutes: 15,
	}
	token, err := MintActorToken(mintCfg, time.Now(), ActorTokenPayload{
		ActorID: uuid.New(),
		Kind:    enums.ActorKindCashier,
	})
	if err != nil {
		t.Fatalf("mint actor token: %v", err)
	}

	parseCfg := mintCfg
	parseCfg.Issuer = "cashlink"
	if _, err := ParseActorToken(parseCfg, token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestMintActorTokenInvalidKind(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:            "secret",
		Issuer:            "cashlink",
		ExpirationMinutes: 5,
	}

	if _, err := MintActorToken(cfg, time.Now(), ActorTokenPayload{
		ActorID: uuid.New(),
		Kind:    "",
	}); err == nil {
		t.Fatal("expected invalid kind error")
	}
}
