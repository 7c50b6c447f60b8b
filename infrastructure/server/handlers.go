package server

import (
	"chat-relay/auth"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) up(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) register(c *fiber.Ctx) error {
	var req chat.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	token, err := s.authService.Register(req)
	if err != nil {
		return toHTTPError(s.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(TokenResponse{AccessToken: token.String(), TokenType: "bearer"})
}

func (s *Server) token(c *fiber.Ctx) error {
	var req chat.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	token, err := s.authService.Login(req)
	if err != nil {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		return toHTTPError(s.log, err)
	}
	return c.JSON(TokenResponse{AccessToken: token.String(), TokenType: "bearer"})
}

func (s *Server) listChats(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	chats, err := s.chatService.ListChats(userID)
	if err != nil {
		return toHTTPError(s.log, err)
	}
	return c.JSON(chats)
}

func (s *Server) createChat(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	var req chat.CreateChatRequest
	if err = c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	created, err := s.chatService.CreateChat(userID, req)
	if err != nil {
		return toHTTPError(s.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (s *Server) addUser(c *fiber.Ctx) error {
	requester, err := caller(c)
	if err != nil {
		return err
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	userID := c.QueryInt("user_id", 0)
	if userID <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "user_id query parameter is required")
	}
	if err = s.chatService.AddUser(requester, chatID, chat.UserID(userID)); err != nil {
		return toHTTPError(s.log, err)
	}
	return c.JSON(DetailResponse{Detail: "User added to chat successfully"})
}

func (s *Server) exitChat(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	if err = s.chatService.ExitChat(userID, chatID); err != nil {
		return toHTTPError(s.log, err)
	}
	return c.JSON(DetailResponse{Detail: "User removed from chat successfully"})
}

func (s *Server) history(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	chatID, err := chatIDParam(c)
	if err != nil {
		return err
	}
	messages, err := s.chatService.History(userID, chatID, c.QueryInt("limit", 100), c.QueryInt("offset", 0))
	if err != nil {
		return toHTTPError(s.log, err)
	}
	return c.JSON(lo.Map(messages, func(m chat.Message, _ int) event.MessageSent {
		return event.NewMessageSent(m)
	}))
}

func caller(c *fiber.Ctx) (chat.UserID, error) {
	userID, ok := auth.UserID(c)
	if !ok {
		return 0, fiber.NewError(fiber.StatusUnauthorized, errors.ErrInvalidToken.Error())
	}
	return userID, nil
}

func chatIDParam(c *fiber.Ctx) (chat.ChatID, error) {
	id, err := c.ParamsInt("chat_id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid chat id %q", c.Params("chat_id")))
	}
	return chat.ChatID(id), nil
}
