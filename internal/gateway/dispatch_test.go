package gateway

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cashlinkhq/cashlink-backend/internal/actors"
	"github.com/cashlinkhq/cashlink-backend/internal/ledger"
	"github.com/cashlinkhq/cashlink-backend/pkg/db/models"
	"github.com/cashlinkhq/cashlink-backend/pkg/enums"
	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
	"github.com/cashlinkhq/cashlink-backend/pkg/logger"
	"github.com/cashlinkhq/cashlink-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type fakeActorsService struct {
	player *actors.AuthenticatedActor
	staff  *actors.AuthenticatedActor
	bot    *actors.AuthenticatedActor
}

func (f *fakeActorsService) AuthenticatePlayer(ctx context.Context, externalID, authProof string) (*actors.AuthenticatedActor, error) {
	if f.player == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown player")
	}
	return f.player, nil
}

func (f *fakeActorsService) AuthenticateStaff(ctx context.Context, token string, expectAdmin bool) (*actors.AuthenticatedActor, error) {
	if f.staff == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	return f.staff, nil
}

func (f *fakeActorsService) AuthenticateBot(ctx context.Context, token string) (*actors.AuthenticatedActor, error) {
	if f.bot == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	return f.bot, nil
}

type fakeTxService struct {
	tx *models.CashTransaction
}

func (f *fakeTxService) Get(ctx context.Context, rawID string) (*models.CashTransaction, error) {
	if f.tx == nil || f.tx.ID.String() != rawID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return f.tx, nil
}

func (f *fakeTxService) AuthorizeJoin(ctx context.Context, tx *models.CashTransaction, kind enums.ActorKind, actorID string) error {
	if kind == enums.ActorKindBot {
		return pkgerrors.New(pkgerrors.CodeForbidden, "bots cannot join transaction rooms")
	}
	return nil
}

func (f *fakeTxService) AdvanceStatus(ctx context.Context, rawID string, status enums.TransactionStatus, rawCashierID string) (*models.CashTransaction, error) {
	tx, err := f.Get(ctx, rawID)
	if err != nil {
		return nil, err
	}
	tx.Status = status
	return tx, nil
}

type fakeLedgerService struct {
	lastDelta decimal.Decimal
}

func (f *fakeLedgerService) Apply(ctx context.Context, cashierID uuid.UUID, delta decimal.Decimal, kind enums.LedgerEntryKind, opts ledger.ApplyOptions) (*ledger.ApplyResult, error) {
	f.lastDelta = delta
	return &ledger.ApplyResult{BalanceBefore: decimal.Zero, BalanceAfter: delta}, nil
}

func (f *fakeLedgerService) History(ctx context.Context, cashierID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	return nil, nil
}

type dispatchFixture struct {
	hub        *Hub
	dispatcher *Dispatcher
	actors     *fakeActorsService
	tx         *fakeTxService
	ledger     *fakeLedgerService
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	hub := newTestHub(t)
	fActors := &fakeActorsService{}
	fTx := &fakeTxService{}
	fLedger := &fakeLedgerService{}

	d, err := NewDispatcher(DispatcherParams{
		Hub:          hub,
		Actors:       fActors,
		Transactions: fTx,
		Ledger:       fLedger,
		Log:          logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
		Metrics:      metrics.NewGatewayMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		t.Fatal(err)
	}
	return &dispatchFixture{hub: hub, dispatcher: d, actors: fActors, tx: fTx, ledger: fLedger}
}

func frame(t *testing.T, event string, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"event": event, "payload": payload})
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func lastReply(t *testing.T, conn *fakeConn, event string) sentEvent {
	t.Helper()
	conn.mu.Lock()
	defer conn.mu.Unlock()
	for i := len(conn.events) - 1; i >= 0; i-- {
		if conn.events[i].Event == event {
			return conn.events[i]
		}
	}
	t.Fatalf("no %q reply, got %+v", event, conn.events)
	return sentEvent{}
}

func errorCodeOf(t *testing.T, e sentEvent) pkgerrors.Code {
	t.Helper()
	payload, ok := e.Payload.(errorPayload)
	if !ok {
		t.Fatalf("expected error payload, got %T", e.Payload)
	}
	return payload.Error.Code
}

func TestDispatchRejectsPreAuthEvents(t *testing.T) {
	f := newDispatchFixture(t)
	conn := newFakeConn("conn-1")
	f.hub.Attach(conn)

	f.dispatcher.Dispatch(context.Background(), conn, frame(t, "dashboard:get-state", nil))

	reply := lastReply(t, conn, "dashboard:get-state:result")
	if code := errorCodeOf(t, reply); code != pkgerrors.CodeUnauthorized {
		t.Fatalf("code = %s", code)
	}
}

func TestDispatchUnknownEvent(t *testing.T) {
	f := newDispatchFixture(t)
	conn := newFakeConn("conn-1")
	f.hub.Attach(conn)

	f.dispatcher.Dispatch(context.Background(), conn, frame(t, "auth:teleport", nil))

	reply := lastReply(t, conn, "auth:teleport:result")
	if code := errorCodeOf(t, reply); code != pkgerrors.CodeValidation {
		t.Fatalf("code = %s", code)
	}
}

func TestDispatchMalformedEnvelope(t *testing.T) {
	f := newDispatchFixture(t)
	conn := newFakeConn("conn-1")
	f.hub.Attach(conn)

	f.dispatcher.Dispatch(context.Background(), conn, []byte("{not json"))

	reply := lastReply(t, conn, EventError)
	if code := errorCodeOf(t, reply); code != pkgerrors.CodeValidation {
		t.Fatalf("code = %s", code)
	}
}

func TestAuthPlayerFlow(t *testing.T) {
	f := newDispatchFixture(t)
	f.actors.player = &actors.AuthenticatedActor{Kind: enums.ActorKindPlayer, ID: "tg-1", DisplayName: "Alice"}

	conn := newFakeConn("conn-1")
	f.hub.Attach(conn)
	f.dispatcher.Dispatch(context.Background(), conn, frame(t, "auth:player", map[string]string{
		"externalId": "tg-1",
		"authProof":  "proof",
	}))

	reply := lastReply(t, conn, "auth:player:result")
	resp, ok := reply.Payload.(authResponse)
	if !ok || !resp.Success {
		t.Fatalf("unexpected auth reply %+v", reply.Payload)
	}
	if resp.Recovery == nil || resp.Recovery.Recovered {
		t.Fatalf("fresh login should carry recovery=false, got %+v", resp.Recovery)
	}
	if identity, authed := f.hub.Identity(conn.ID()); !authed || identity.ID != "tg-1" {
		t.Fatalf("connection not registered: %+v", identity)
	}
}

func TestReauthOnLiveConnectionRejected(t *testing.T) {
	f := newDispatchFixture(t)
	f.actors.player = &actors.AuthenticatedActor{Kind: enums.ActorKindPlayer, ID: "tg-1", DisplayName: "Alice"}
	f.actors.staff = &actors.AuthenticatedActor{Kind: enums.ActorKindCashier, ID: uuid.NewString()}

	conn := newFakeConn("conn-1")
	f.hub.Attach(conn)
	f.dispatcher.Dispatch(context.Background(), conn, frame(t, "auth:player", map[string]string{
		"externalId": "tg-1", "authProof": "proof",
	}))

	// A second auth on the same socket must not rebind it to another actor.
	f.dispatcher.Dispatch(context.Background(), conn, frame(t, "auth:cashier-or-admin", map[string]string{"token": "tok"}))

	reply := lastReply(t, conn, "auth:cashier-or-admin:result")
	if code := errorCodeOf(t, reply); code != pkgerrors.CodeConflict {
		t.Fatalf("code = %s", code)
	}
	identity, authed := f.hub.Identity(conn.ID())
	if !authed || identity.Kind != enums.ActorKindPlayer || identity.ID != "tg-1" {
		t.Fatalf("original identity must survive, got %+v", identity)
	}
}

func TestAuthPlayerValidation(t *testing.T) {
	f := newDispatchFixture(t)
	conn := newFakeConn("conn-1")
	f.hub.Attach(conn)

	f.dispatcher.Dispatch(context.Background(), conn, frame(t, "auth:player", map[string]string{"externalId": "tg-1"}))

	reply := lastReply(t, conn, "auth:player:result")
	if code := errorCodeOf(t, reply); code != pkgerrors.CodeValidation {
		t.Fatalf("code = %s", code)
	}
}

func TestTransactionJoinFlow(t *testing.T) {
	f := newDispatchFixture(t)
	txID := uuid.New()
	f.tx.tx = &models.CashTransaction{ID: txID, Status: enums.TransactionStatusPending}
	f.actors.player = &actors.AuthenticatedActor{Kind: enums.ActorKindPlayer, ID: "tg-1"}

	conn := newFakeConn("conn-1")
	f.hub.Attach(conn)
	f.dispatcher.Dispatch(context.Background(), conn, frame(t, "auth:player", map[string]string{
		"externalId": "tg-1", "authProof": "proof",
	}))
	f.dispatcher.Dispatch(context.Background(), conn, frame(t, "transaction:join", map[string]string{
		"transactionId": txID.String(),
	}))

	reply := lastReply(t, conn, "transaction:join:result")
	resp, ok := reply.Payload.(transactionJoinResponse)
	if !ok || !resp.Joined {
		t.Fatalf("unexpected join reply %+v", reply.Payload)
	}

	roomsNow := f.hub.TransactionRooms()
	if len(roomsNow) != 1 || roomsNow[0].TransactionID != txID.String() {
		t.Fatalf("transaction room missing: %+v", roomsNow)
	}
}

func TestDashboardRequiresStaff(t *testing.T) {
	f := newDispatchFixture(t)
	f.actors.player = &actors.AuthenticatedActor{Kind: enums.ActorKindPlayer, ID: "tg-1"}

	conn := newFakeConn("conn-1")
	f.hub.Attach(conn)
	f.dispatcher.Dispatch(context.Background(), conn, frame(t, "auth:player", map[string]string{
		"externalId": "tg-1", "authProof": "proof",
	}))
	f.dispatcher.Dispatch(context.Background(), conn, frame(t, "dashboard:join", nil))

	reply := lastReply(t, conn, "dashboard:join:result")
	if code := errorCodeOf(t, reply); code != pkgerrors.CodeForbidden {
		t.Fatalf("code = %s", code)
	}
}

func TestLedgerApplyThroughDispatch(t *testing.T) {
	f := newDispatchFixture(t)
	cashierID := uuid.New()
	f.actors.staff = &actors.AuthenticatedActor{Kind: enums.ActorKindCashier, ID: cashierID.String()}

	conn := newFakeConn("conn-1")
	f.hub.Attach(conn)
	f.dispatcher.Dispatch(context.Background(), conn, frame(t, "auth:cashier-or-admin", map[string]string{"token": "tok"}))
	f.dispatcher.Dispatch(context.Background(), conn, frame(t, "ledger:apply", map[string]string{
		"delta": "-25.00",
		"kind":  "withdrawal",
	}))

	reply := lastReply(t, conn, "ledger:apply:result")
	if _, ok := reply.Payload.(*ledger.ApplyResult); !ok {
		t.Fatalf("unexpected apply reply %+v", reply.Payload)
	}
	if !f.ledger.lastDelta.Equal(decimal.RequireFromString("-25.00")) {
		t.Fatalf("delta = %s", f.ledger.lastDelta)
	}
}
