package auth

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"fmt"
)

var _ contract.AuthVerifier = (*JWTVerifier)(nil)

// JWTVerifier authenticates WebSocket handshakes.
// A token is only accepted while its user still exists.
type JWTVerifier struct {
	issuer *TokenIssuer
	users  repositories.IUserRepository
}

func NewJWTVerifier(issuer *TokenIssuer, users repositories.IUserRepository) *JWTVerifier {
	return &JWTVerifier{issuer: issuer, users: users}
}

func (v *JWTVerifier) VerifyToken(ctx context.Context, token string) (chat.UserID, error) {
	if token == "" {
		return 0, fmt.Errorf("%w: missing token", errors.ErrInvalidToken)
	}
	claims, err := v.issuer.ValidateToken(token)
	if err != nil {
		return 0, err
	}
	if err = ctx.Err(); err != nil {
		return 0, err
	}
	if _, err = v.users.GetUserByID(claims.UserID); err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	return claims.UserID, nil
}
