// Package actor implements the message-actor façade of spec.md §4.7/§6.4:
// a single dispatcher that turns a tagged {cmd, payload} JSON envelope into
// a call against an internal/manager.Manager and serializes the result (or
// error, or recovered panic) back into a tagged {type, payload} envelope.
// It is the one boundary in this module where a panic must never escape,
// matching the teacher's habit of recovering only at a dispatch/handler
// boundary and letting panics propagate everywhere else.
package actor

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/hashicorp/go-uuid"

	"github.com/iotaledger/wallet.go/internal/manager"
	"github.com/iotaledger/wallet.go/log"
	"github.com/iotaledger/wallet.go/walleterr"
)

var logger = log.NewModuleLogger(log.Actor)

// Message is the inbound envelope (spec.md §6.4): {cmd, payload}.
type Message struct {
	ID      string          `json:"id,omitempty"`
	Cmd     string          `json:"cmd"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the outbound envelope: {type, payload}.
type Response struct {
	ID      string      `json:"id,omitempty"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// errorPayload is the shape of a Response whose Type is "Error" (spec.md
// §6.4: "{type: Error, payload: {type: <ErrorKind>, error: <msg>}}").
type errorPayload struct {
	Type  walleterr.Kind `json:"type"`
	Error string         `json:"error"`
}

// handlerFunc runs one command's business logic against m and returns the
// value to serialize as the success payload.
type handlerFunc func(ctx context.Context, m *manager.Manager, payload json.RawMessage) (interface{}, error)

// Actor dispatches Messages against a single Manager. It holds no
// concurrency state of its own beyond request-id generation: every command
// is independently safe to run concurrently since Manager already
// synchronizes its own state (spec.md §5).
type Actor struct {
	manager  *manager.Manager
	handlers map[string]handlerFunc
}

func New(m *manager.Manager) *Actor {
	a := &Actor{manager: m}
	a.handlers = registry()
	return a
}

// Dispatch decodes msg, routes it to the matching handler, and always
// returns a Response — never an error — since every failure mode (unknown
// command, handler error, panic) is itself reported as a Response per
// spec.md §4.7.
func (a *Actor) Dispatch(ctx context.Context, msg Message) (resp Response) {
	id := msg.ID
	if id == "" {
		id, _ = uuid.GenerateUUID()
	}
	resp.ID = id

	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("actor handler panicked", "cmd", msg.Cmd, "recovered", r)
			resp = Response{
				ID:   id,
				Type: "Panic",
				Payload: errorPayload{
					Type:  walleterr.KindPanic,
					Error: fmt.Sprintf("%v\n%s", r, debug.Stack()),
				},
			}
		}
	}()

	handler, ok := a.handlers[msg.Cmd]
	if !ok {
		return Response{
			ID:   id,
			Type: "Error",
			Payload: errorPayload{
				Type:  walleterr.KindInvalidMessage,
				Error: "unknown command: " + msg.Cmd,
			},
		}
	}

	payload, err := handler(ctx, a.manager, msg.Payload)
	if err != nil {
		return Response{ID: id, Type: "Error", Payload: errorResponse(err)}
	}
	return Response{ID: id, Type: msg.Cmd, Payload: payload}
}

func errorResponse(err error) errorPayload {
	kind := walleterr.Kind("unknown")
	if we, ok := err.(walleterr.WalletError); ok {
		kind = we.Kind()
	}
	return errorPayload{Type: kind, Error: err.Error()}
}

func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return walleterr.Wrap(walleterr.KindInvalidMessage, err, "failed to decode command payload")
	}
	return nil
}
