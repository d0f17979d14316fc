package gateway

import (
	"encoding/json"

	pkgerrors "github.com/cashlinkhq/cashlink-backend/pkg/errors"
)

// Envelope is the wire frame. Every message in either direction is
// {event, payload}.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Outbound events not tied to a request.
const (
	EventSessionReplaced = "session-replaced"
	EventPresenceUpdate  = "presence:update"
	EventError           = "error"
)

// ResultEvent names the reply to a request event.
func ResultEvent(event string) string {
	return event + ":result"
}

type errorBody struct {
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
	Details any            `json:"details,omitempty"`
}

type errorPayload struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

// newErrorPayload maps an error onto the public wire shape. Internal causes
// stay out of the payload; only codes whose metadata allows details carry them.
func newErrorPayload(err error) errorPayload {
	typed := pkgerrors.As(err)
	if typed == nil {
		meta := pkgerrors.MetadataFor(pkgerrors.CodeInternal)
		return errorPayload{Error: errorBody{Code: pkgerrors.CodeInternal, Message: meta.PublicMessage}}
	}

	meta := pkgerrors.MetadataFor(typed.Code())
	body := errorBody{Code: typed.Code(), Message: typed.Message()}
	if body.Message == "" {
		body.Message = meta.PublicMessage
	}
	if meta.DetailsAllowed {
		body.Details = typed.Details()
	}
	return errorPayload{Error: body}
}
