// Package server exposes the relay over HTTP: account and chat management,
// history, and the WebSocket endpoint handed to the command router.
package server

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/services"
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// maxFrameSize bounds one inbound WebSocket frame.
const maxFrameSize = 64 * 1024

type Server struct {
	ctx          context.Context
	log          *slog.Logger
	app          *fiber.App
	sessions     contract.ISessionHandler
	authService  services.IAuthService
	chatService  services.IChatService
	issuer       *auth.TokenIssuer
	writeTimeout time.Duration
}

// NewServer wires the routes. ctx is the parent of every WebSocket session:
// cancelling it closes them all with 1001.
func NewServer(ctx context.Context, log *slog.Logger, sessions contract.ISessionHandler,
	authService services.IAuthService, chatService services.IChatService,
	issuer *auth.TokenIssuer, writeTimeout time.Duration) *Server {
	s := &Server{
		ctx:          ctx,
		log:          log,
		sessions:     sessions,
		authService:  authService,
		chatService:  chatService,
		issuer:       issuer,
		writeTimeout: writeTimeout,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
	})
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "${time} ${status} - ${latency} ${method} ${path}\n",
		Next:   websocket.IsWebSocketUpgrade,
	}))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/up", s.up)

	s.app.Post("/auth/register", s.register)
	s.app.Post("/auth/token", s.token)

	chats := s.app.Group("/chats", auth.Middleware(s.issuer))
	chats.Get("/", s.listChats)
	chats.Post("/", s.createChat)
	chats.Post("/:chat_id/add-user", s.addUser)
	chats.Delete("/:chat_id/exit", s.exitChat)

	s.app.Get("/history/:chat_id", auth.Middleware(s.issuer), s.history)

	s.app.Use("/ws", upgradeRequired)
	s.app.Get("/ws/:token?", websocket.New(s.serveWebSocket, websocket.Config{
		HandshakeTimeout: 10 * time.Second,
	}))
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("Starting HTTP server", "address", ln.Addr().String())
	return s.app.Listener(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func upgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// serveWebSocket blocks for the whole session. The fiber connection is
// recycled once it returns, so Serve must not leave anything writing to it.
func (s *Server) serveWebSocket(conn *websocket.Conn) {
	token := conn.Params("token")
	if token == "" {
		token = conn.Query("token")
	}
	conn.SetReadLimit(maxFrameSize)

	if err := s.sessions.Serve(s.ctx, newWSTransport(conn, s.writeTimeout), token); err != nil {
		s.log.Debug("WebSocket session refused", "ip", conn.IP(), "error", err)
	}
}
