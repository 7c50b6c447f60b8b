package sink

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var _ contract.Connection = (*ConnectionSink)(nil)

// ConnectionSink is the outbound side of one live connection.
// Send only enqueues: a single writer goroutine (Run) drains the queue in FIFO
// order onto the transport, so a slow peer never blocks the dispatcher.
type ConnectionSink struct {
	id        string
	userID    chat.UserID
	log       *slog.Logger
	transport contract.Transport
	outbound  chan []byte
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func NewConnectionSink(log *slog.Logger, userID chat.UserID, transport contract.Transport, bufferSize int) *ConnectionSink {
	id := uuid.NewString()
	return &ConnectionSink{
		id:        id,
		userID:    userID,
		log:       log.With("connection_id", id, "user_id", userID),
		transport: transport,
		outbound:  make(chan []byte, bufferSize),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

func (s *ConnectionSink) ID() string { return s.id }

func (s *ConnectionSink) UserID() chat.UserID { return s.userID }

func (s *ConnectionSink) Done() <-chan struct{} { return s.done }

// Stopped is closed once the writer goroutine has returned.
func (s *ConnectionSink) Stopped() <-chan struct{} { return s.stopped }

// Send enqueues a frame. When the queue is full it waits until ctx expires,
// then gives up with ErrSendBufferFull so the caller can prune the connection.
func (s *ConnectionSink) Send(ctx context.Context, frame []byte) error {
	select {
	case <-s.done:
		return errors.ErrConnectionClosed
	default:
	}

	select {
	case s.outbound <- frame:
		return nil
	default:
	}

	select {
	case s.outbound <- frame:
		return nil
	case <-s.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return errors.ErrSendBufferFull
	}
}

// Run writes queued frames until the connection is closed or the transport fails.
func (s *ConnectionSink) Run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case frame := <-s.outbound:
			if err := s.transport.WriteFrame(frame); err != nil {
				s.log.Debug("Write failed, closing connection", "error", err)
				_ = s.Close(contract.CloseInternalError, "write failed")
				return
			}
		}
	}
}

// Close sends a close frame with the given code and reason and tears the transport down.
// Only the first call has an effect.
func (s *ConnectionSink) Close(code int, reason string) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if writeErr := s.transport.WriteClose(code, reason); writeErr != nil {
			s.log.Debug("Close frame not sent", "error", writeErr)
		}
		err = s.transport.Close()
		s.log.Debug("Connection closed", "code", code, "reason", reason)
	})
	return err
}
