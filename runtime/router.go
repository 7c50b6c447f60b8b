package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/repositories"
	"chat-relay/sink"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

var _ contract.ISessionHandler = (*CommandRouter)(nil)

// State of a connection as seen by its router.
type State int32

const (
	Connecting State = iota
	Idle
	Processing
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error codes carried by error frames.
const (
	CodeUnknownCommand   = "UNKNOWN_COMMAND"
	CodeDuplicateMessage = "DUPLICATE_MESSAGE"
	CodeChatNotFound     = "CHAT_NOT_FOUND"
	CodeMessageNotFound  = "MESSAGE_NOT_FOUND"
	CodeForbidden        = "FORBIDDEN"
	CodeRateLimited      = "RATE_LIMITED"
	CodeServerError      = "SERVER_ERROR"
)

type RouterConfig struct {
	ConnectionBufferSize int
	FramesPerSecond      float64
	FrameBurst           int
	ProcessingTimeout    time.Duration
}

// CommandRouter runs the per-connection state machine:
// Connecting -> Idle <-> Processing -> Closed.
// Commands of one connection are handled one at a time, and each dispatch is
// awaited before the next frame is read, so a client's stream is never reordered.
type CommandRouter struct {
	log      *slog.Logger
	cfg      RouterConfig
	registry contract.IRegistry
	verifier contract.AuthVerifier
	ingestor contract.IIngestor
	fanout   contract.IFanout
	messages repositories.IMessageRepository
	chats    repositories.IChatRepository
}

func NewCommandRouter(log *slog.Logger, cfg RouterConfig, registry contract.IRegistry,
	verifier contract.AuthVerifier, ingestor contract.IIngestor, fanout contract.IFanout,
	messages repositories.IMessageRepository, chats repositories.IChatRepository) *CommandRouter {
	return &CommandRouter{
		log:      log,
		cfg:      cfg,
		registry: registry,
		verifier: verifier,
		ingestor: ingestor,
		fanout:   fanout,
		messages: messages,
		chats:    chats,
	}
}

// Session is the router's view of one live connection.
type Session struct {
	state   atomic.Int32
	userID  chat.UserID
	conn    *sink.ConnectionSink
	limiter *rate.Limiter
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

// closeSignal ends the connection with a close frame.
type closeSignal struct {
	code   int
	reason string
}

// Serve authenticates the connection and then handles its commands until the
// peer goes away, the connection is pruned, or ctx is cancelled.
// It returns once the connection is unregistered and its writer has stopped.
func (r *CommandRouter) Serve(ctx context.Context, transport contract.Transport, token string) error {
	session := &Session{}
	session.setState(Connecting)

	userID, err := r.verifier.VerifyToken(ctx, token)
	if err != nil {
		session.setState(Closed)
		r.log.Debug("Handshake rejected", "error", err)
		_ = transport.WriteClose(contract.ClosePolicyViolation, "Invalid or expired token")
		_ = transport.Close()
		return fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	session.userID = userID
	session.conn = sink.NewConnectionSink(r.log, userID, transport, r.cfg.ConnectionBufferSize)
	session.limiter = rate.NewLimiter(rate.Limit(r.cfg.FramesPerSecond), r.cfg.FrameBurst)
	go session.conn.Run()

	r.registry.Register(userID, session.conn)
	session.setState(Idle)
	log := r.log.With("user_id", userID, "connection_id", session.conn.ID())
	log.Info("Connection opened")

	go func() {
		select {
		case <-ctx.Done():
			_ = session.conn.Close(contract.CloseGoingAway, "server shutting down")
		case <-session.conn.Done():
		}
	}()

	defer func() {
		session.setState(Closed)
		r.registry.Unregister(userID, session.conn)
		_ = session.conn.Close(contract.CloseNormal, "")
		<-session.conn.Stopped()
		log.Info("Connection closed")
	}()

	for {
		frame, err := transport.ReadFrame()
		if err != nil {
			log.Debug("Read stopped", "error", err)
			return nil
		}
		select {
		case <-session.conn.Done():
			return nil
		default:
		}

		session.setState(Processing)
		if signal := r.handle(ctx, session, frame); signal != nil {
			_ = session.conn.Close(signal.code, signal.reason)
			return nil
		}
		session.setState(Idle)
	}
}

func (r *CommandRouter) handle(ctx context.Context, s *Session, frame []byte) *closeSignal {
	if !s.limiter.Allow() {
		r.reply(ctx, s, event.NewErrorFrame(CodeRateLimited, errors.ErrRateLimited.Error()))
		return nil
	}

	envelope, err := decode[chat.Envelope](frame)
	if err != nil {
		return &closeSignal{code: contract.CloseInvalidPayload, reason: "Invalid message format"}
	}

	if r.cfg.ProcessingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.ProcessingTimeout)
		defer cancel()
	}

	switch envelope.Command {
	case chat.SendMessage:
		err = r.sendMessage(ctx, s, envelope.Payload)
	case chat.ReadMessage:
		err = r.readMessage(ctx, s, envelope.Payload)
	default:
		err = fmt.Errorf("%w: %s", errors.ErrUnknownCommand, envelope.Command)
	}
	return r.reject(ctx, s, err)
}

func (r *CommandRouter) sendMessage(ctx context.Context, s *Session, payload json.RawMessage) error {
	msg, err := r.ingestor.Ingest(ctx, payload, s.userID)
	if err != nil {
		return err
	}
	// The message is durable from here on: delivery problems are logged, never returned.
	report, err := r.fanout.DispatchMessage(ctx, s.conn.ID(), msg)
	if err != nil {
		r.log.Warn("Message fan-out failed", "message_id", msg.ID, "error", err)
		return nil
	}
	r.log.Debug("Message fanned out", "message_id", msg.ID, "chat_id", msg.ChatID,
		"delivered", report.Delivered, "pruned", report.Pruned, "offline", report.Offline)
	return nil
}

// readMessage flips the read flag and notifies the sender the first time only.
func (r *CommandRouter) readMessage(ctx context.Context, s *Session, payload json.RawMessage) error {
	cmd, err := decode[chat.ReadMessageCommand](payload)
	if err != nil {
		return err
	}
	msg, err := r.messages.FindMessageByID(*cmd.ID)
	if err != nil {
		return err
	}
	member, err := r.chats.IsMember(msg.ChatID, s.userID)
	if err != nil {
		return err
	}
	if !member {
		return errors.ErrForbidden
	}
	changed, err := r.messages.SetMessageRead(msg.ID)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if _, err = r.fanout.DispatchReadNotification(ctx, s.conn.ID(), msg); err != nil {
		r.log.Warn("Read notification fan-out failed", "message_id", msg.ID, "error", err)
	}
	return nil
}

// reject maps a command failure onto the wire. Malformed payloads close the
// connection, everything else is answered with an error frame.
func (r *CommandRouter) reject(ctx context.Context, s *Session, err error) *closeSignal {
	if err == nil {
		return nil
	}
	var frame event.ErrorFrame
	switch {
	case errors.Is(err, errors.ErrMalformedPayload):
		return &closeSignal{code: contract.CloseInvalidPayload, reason: "Invalid message format"}
	case errors.Is(err, errors.ErrUnknownCommand):
		frame = event.NewErrorFrame(CodeUnknownCommand, err.Error())
	case errors.Is(err, errors.ErrDuplicateMessage):
		frame = event.NewErrorFrame(CodeDuplicateMessage, err.Error())
	case errors.Is(err, errors.ErrChatNotFound):
		frame = event.NewErrorFrame(CodeChatNotFound, err.Error())
	case errors.Is(err, errors.ErrMessageNotFound):
		frame = event.NewErrorFrame(CodeMessageNotFound, err.Error())
	case errors.Is(err, errors.ErrForbidden):
		frame = event.NewErrorFrame(CodeForbidden, err.Error())
	default:
		r.log.Error("Command failed", "user_id", s.userID, "error", err)
		frame = event.NewErrorFrame(CodeServerError, "Internal server error")
	}
	r.reply(ctx, s, frame)
	return nil
}

func (r *CommandRouter) reply(ctx context.Context, s *Session, frame event.ErrorFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		r.log.Error("Error frame not encoded", "error", err)
		return
	}
	if err = s.conn.Send(ctx, data); err != nil {
		r.log.Debug("Error frame not delivered", "user_id", s.userID, "error", err)
	}
}
