//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"chat-relay/auth"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/repositories"
	"fmt"
	"log/slog"
	"strings"
)

type IAuthService interface {
	Register(req chat.RegisterRequest) (chat.Token, error)
	Login(req chat.LoginRequest) (chat.Token, error)
}

type AuthService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
	issuer         *auth.TokenIssuer
}

func NewAuthService(log *slog.Logger, repo repositories.IUserRepository, issuer *auth.TokenIssuer) *AuthService {
	return &AuthService{log: log, userRepository: repo, issuer: issuer}
}

// Register creates the account and returns its first access token.
// Validation runs before any hashing.
func (s *AuthService) Register(req chat.RegisterRequest) (chat.Token, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := auth.ValidateRegister(req); err != nil {
		return "", err
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	// ErrUserAlreadyExists when the email is taken
	user, err := s.userRepository.CreateUser(req.Email, req.Name, hashedPassword)
	if err != nil {
		return "", err
	}
	s.log.Info("User registered", "user_id", user.ID)

	token, err := s.issuer.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", err
	}
	return chat.Token(token), nil
}

func (s *AuthService) Login(req chat.LoginRequest) (chat.Token, error) {
	if err := auth.ValidateLogin(req); err != nil {
		return "", err
	}

	user, err := s.userRepository.GetUserByEmail(req.Email)
	if err != nil {
		// Same answer for unknown users and wrong passwords
		if !errors.Is(err, errors.ErrUserNotFound) {
			s.log.Warn("User lookup failed", "error", err)
		}
		return "", errors.ErrInvalidCredentials
	}

	if err = auth.CheckCredentials(req.Password, user.PasswordHash); err != nil {
		return "", err
	}

	token, err := s.issuer.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", err
	}
	return chat.Token(token), nil
}
