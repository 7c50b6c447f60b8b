//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"context"
	"encoding/json"
	"reflect"
)

// WebSocket close codes used when the server ends a connection.
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	CloseInvalidPayload  = 1007
	ClosePolicyViolation = 1008
	CloseInternalError   = 1011
	CloseTryAgainLater   = 1013
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision, so workers don't need to name themselves.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is one live bidirectional channel owned by exactly one user.
// Send must never block longer than the context allows.
type Connection interface {
	ID() string
	UserID() chat.UserID
	Send(ctx context.Context, frame []byte) error
	Close(code int, reason string) error
	Done() <-chan struct{}
}

// Transport is the framed wire under a Connection.
// ReadFrame is only called by the connection's reader, WriteFrame only by its writer.
// WriteClose and Close may be called from any goroutine.
type Transport interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	WriteClose(code int, reason string) error
	Close() error
}

type IRegistry interface {
	Register(userID chat.UserID, conn Connection)
	Unregister(userID chat.UserID, conn Connection) bool
	ConnectionsFor(userID chat.UserID) []Connection
}

type AuthVerifier interface {
	VerifyToken(ctx context.Context, token string) (chat.UserID, error)
}

type IIngestor interface {
	Ingest(ctx context.Context, payload json.RawMessage, sender chat.UserID) (chat.Message, error)
}

// IDispatcher pushes one logical event to every live connection of its recipients.
type IDispatcher interface {
	DispatchMessage(ctx context.Context, msg chat.Message) (event.DeliveryReport, error)
	DispatchReadNotification(ctx context.Context, msg chat.Message) (event.DeliveryReport, error)
}

// IFanout hands deliveries to the fan-out lanes and waits for their report.
// connID selects the lane so one connection's deliveries stay in order.
type IFanout interface {
	DispatchMessage(ctx context.Context, connID string, msg chat.Message) (event.DeliveryReport, error)
	DispatchReadNotification(ctx context.Context, connID string, msg chat.Message) (event.DeliveryReport, error)
}

// ISessionHandler drives one WebSocket connection from handshake to close.
type ISessionHandler interface {
	Serve(ctx context.Context, transport Transport, token string) error
}
