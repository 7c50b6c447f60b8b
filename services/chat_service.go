//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
	"log/slog"
	"strings"
)

// MaxHistoryLimit caps a single history page.
const MaxHistoryLimit = 500

type IChatService interface {
	ListChats(userID chat.UserID) ([]chat.Chat, error)
	CreateChat(userID chat.UserID, req chat.CreateChatRequest) (chat.Chat, error)
	AddUser(requester chat.UserID, chatID chat.ChatID, userID chat.UserID) error
	ExitChat(userID chat.UserID, chatID chat.ChatID) error
	History(userID chat.UserID, chatID chat.ChatID, limit, offset int) ([]chat.Message, error)
}

type ChatService struct {
	log      *slog.Logger
	chats    repositories.IChatRepository
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
}

func NewChatService(log *slog.Logger, chats repositories.IChatRepository,
	messages repositories.IMessageRepository, users repositories.IUserRepository) *ChatService {
	return &ChatService{log: log, chats: chats, messages: messages, users: users}
}

func (s *ChatService) ListChats(userID chat.UserID) ([]chat.Chat, error) {
	chats, err := s.chats.ListForUser(userID)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []chat.Chat{}
	}
	return chats, nil
}

func (s *ChatService) CreateChat(userID chat.UserID, req chat.CreateChatRequest) (chat.Chat, error) {
	if req.IsGroup {
		name := strings.TrimSpace(req.Name)
		if name == "" || len(name) > 64 {
			return chat.Chat{}, fmt.Errorf("%w: a group needs a name of 1 to 64 characters", errors.ErrInvalidChatRequest)
		}
		c, err := s.chats.CreateGroupChat(userID, name)
		if err != nil {
			return chat.Chat{}, err
		}
		s.log.Info("Group chat created", "chat_id", c.ID, "creator_id", userID)
		return c, nil
	}

	if req.RecipientID == nil {
		return chat.Chat{}, fmt.Errorf("%w: recipient_id is required for a direct chat", errors.ErrInvalidChatRequest)
	}
	recipient := *req.RecipientID
	if recipient == userID {
		return chat.Chat{}, errors.ErrSelfChat
	}
	if _, err := s.users.GetUserByID(recipient); err != nil {
		return chat.Chat{}, err
	}
	c, err := s.chats.CreateDirectChat(userID, recipient)
	if err != nil {
		return chat.Chat{}, err
	}
	s.log.Info("Direct chat created", "chat_id", c.ID, "user_id", userID, "recipient_id", recipient)
	return c, nil
}

// AddUser adds userID to a group chat the requester belongs to.
func (s *ChatService) AddUser(requester chat.UserID, chatID chat.ChatID, userID chat.UserID) error {
	if err := s.requireMember(chatID, requester); err != nil {
		return err
	}
	if _, err := s.users.GetUserByID(userID); err != nil {
		return err
	}
	return s.chats.AddMember(chatID, userID)
}

func (s *ChatService) ExitChat(userID chat.UserID, chatID chat.ChatID) error {
	return s.chats.RemoveMember(chatID, userID)
}

// History pages through a chat the caller belongs to, oldest first.
func (s *ChatService) History(userID chat.UserID, chatID chat.ChatID, limit, offset int) ([]chat.Message, error) {
	if limit < 0 || offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must be positive", errors.ErrInvalidChatRequest)
	}
	if err := s.requireMember(chatID, userID); err != nil {
		return nil, err
	}
	messages, err := s.messages.History(chatID, min(limit, MaxHistoryLimit), offset)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return messages, nil
}

// requireMember reports unknown chats as ErrForbidden, like any chat the user is not in.
func (s *ChatService) requireMember(chatID chat.ChatID, userID chat.UserID) error {
	member, err := s.chats.IsMember(chatID, userID)
	if errors.Is(err, errors.ErrChatNotFound) {
		return errors.ErrForbidden
	}
	if err != nil {
		return err
	}
	if !member {
		return errors.ErrForbidden
	}
	return nil
}
