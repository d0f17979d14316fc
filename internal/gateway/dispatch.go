package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cashlinkhq/cashlink-backend/internal/actors"
	"github.com/cashlinkhq/cashlink-backend/internal/ledger"
	"github.com/cashlinkhq/cashlink-backend/internal/registry"
	"github.com/cashlinkhq/cashlink-backend/internal/transactions"
	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
	"github.com/cashlinkhq/cashlink-backend/pkg/logger"
	"github.com/cashlinkhq/cashlink-backend/pkg/metrics"
)

const authEventPrefix = "auth:"

// EventContext carries everything a handler needs for one inbound event.
type EventContext struct {
	Conn Conn
	// Identity is nil until the connection authenticates.
	Identity *registry.Identity
	Payload  json.RawMessage
}

// HandlerFunc processes one event and returns the reply payload.
type HandlerFunc func(ctx context.Context, ec *EventContext) (any, error)

// Dispatcher routes inbound envelopes to typed handlers. Unauthenticated
// connections may only send auth:* events.
type Dispatcher struct {
	hub          *Hub
	actors       actors.Service
	transactions transactions.Service
	ledger       ledger.Service
	log          *logger.Logger
	gwMetrics    *metrics.GatewayMetrics
	handlers     map[string]HandlerFunc
}

// DispatcherParams wires the dispatcher dependencies.
type DispatcherParams struct {
	Hub          *Hub
	Actors       actors.Service
	Transactions transactions.Service
	Ledger       ledger.Service
	Log          *logger.Logger
	Metrics      *metrics.GatewayMetrics
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Hub == nil {
		return nil, fmt.Errorf("hub required")
	}
	if params.Actors == nil {
		return nil, fmt.Errorf("actors service required")
	}
	if params.Transactions == nil {
		return nil, fmt.Errorf("transactions service required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Log == nil {
		return nil, fmt.Errorf("logger required")
	}

	d := &Dispatcher{
		hub:          params.Hub,
		actors:       params.Actors,
		transactions: params.Transactions,
		ledger:       params.Ledger,
		log:          params.Log,
		gwMetrics:    params.Metrics,
	}
	d.handlers = map[string]HandlerFunc{
		"auth:player":            d.handleAuthPlayer,
		"auth:cashier-or-admin":  d.handleAuthStaff,
		"auth:bot":               d.handleAuthBot,
		"cashier:set-status":     d.handleSetStatus,
		"transaction:join":       d.handleTransactionJoin,
		"transaction:leave":      d.handleTransactionLeave,
		"transaction:update":     d.handleTransactionUpdate,
		"ledger:apply":           d.handleLedgerApply,
		"ledger:history":         d.handleLedgerHistory,
		"dashboard:join":         d.handleDashboardJoin,
		"dashboard:get-state":    d.handleDashboardState,
		"dashboard:get-cashiers": d.handleDashboardCashiers,
		"dashboard:get-transactions": d.handleDashboardTransactions,
		"rooms:diagnose":             d.handleRoomsDiagnose,
		"rooms:cleanup":              d.handleRoomsCleanup,
	}
	return d, nil
}

// Dispatch handles one raw frame from the connection's read loop.
func (d *Dispatcher) Dispatch(ctx context.Context, conn Conn, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		d.reply(conn, EventError, nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed envelope"))
		d.gwMetrics.IncEvent("malformed", "error")
		return
	}
	if env.Event == "" {
		d.reply(conn, EventError, nil, pkgerrors.New(pkgerrors.CodeValidation, "event name is required"))
		d.gwMetrics.IncEvent("malformed", "error")
		return
	}

	ctx = d.log.WithConnectionID(ctx, conn.ID())

	handler, ok := d.handlers[env.Event]
	if !ok {
		d.reply(conn, ResultEvent(env.Event), nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown event %q", env.Event)))
		d.gwMetrics.IncEvent(env.Event, "error")
		return
	}

	ec := &EventContext{Conn: conn, Payload: env.Payload}
	if identity, authed := d.hub.Identity(conn.ID()); authed {
		if strings.HasPrefix(env.Event, authEventPrefix) {
			d.reply(conn, ResultEvent(env.Event), nil, pkgerrors.New(pkgerrors.CodeConflict, "connection is already authenticated"))
			d.gwMetrics.IncEvent(env.Event, "error")
			return
		}
		ec.Identity = &identity
		ctx = d.log.WithActor(ctx, string(identity.Kind), identity.ID)
	} else if !strings.HasPrefix(env.Event, authEventPrefix) {
		d.reply(conn, ResultEvent(env.Event), nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticate first"))
		d.gwMetrics.IncEvent(env.Event, "error")
		return
	}

	result, err := handler(ctx, ec)
	if err != nil {
		if pkgerrors.MetadataFor(pkgerrors.As(err).Code()).HTTPStatus >= 500 {
			d.log.Error(ctx, "event handler failed", err)
		}
		d.reply(conn, ResultEvent(env.Event), nil, err)
		d.gwMetrics.IncEvent(env.Event, "error")
		return
	}

	d.reply(conn, ResultEvent(env.Event), result, nil)
	d.gwMetrics.IncEvent(env.Event, "ok")
}

func (d *Dispatcher) reply(conn Conn, event string, payload any, err error) {
	if err != nil {
		payload = newErrorPayload(err)
	}
	_ = conn.Send(event, payload)
}
