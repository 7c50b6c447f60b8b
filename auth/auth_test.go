package auth

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const secret = "a-test-secret-that-is-long-enough"

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MyPasswordIsTr0pSûr!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("WrongPassword1!", hash)
	req.NoError(err)
	req.False(match)

	req.NoError(CheckCredentials(password, hash))
	req.ErrorIs(CheckCredentials("WrongPassword1!", hash), errors.ErrInvalidCredentials)
}

func TestComparePassword_Rejects_Malformed_Hash(t *testing.T) {
	req := require.New(t)
	for _, hash := range []string{
		"",
		"plain-text",
		"$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA",
	} {
		_, err := ComparePassword("whatever", hash)
		req.Error(err, hash)
		req.ErrorIs(CheckCredentials("whatever", hash), errors.ErrInvalidCredentials)
	}
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     chat.RegisterRequest
		wantErr error
	}{
		{"Valid request", chat.RegisterRequest{Email: "test@example.com", Name: "Alice", Password: "ComplexPass123!"}, nil},
		{"Invalid email", chat.RegisterRequest{Email: "notanemail", Name: "Alice", Password: "ComplexPass123!"}, errors.ErrInvalidRegistration},
		{"Missing name", chat.RegisterRequest{Email: "test@example.com", Name: "", Password: "ComplexPass123!"}, errors.ErrInvalidRegistration},
		{"Password too short", chat.RegisterRequest{Email: "test@example.com", Name: "Alice", Password: "Short1!"}, errors.ErrInvalidRegistration},
		{"Password too long", chat.RegisterRequest{Email: "test@example.com", Name: "Alice", Password: strings.Repeat("a", 73)}, errors.ErrInvalidRegistration},
		{"Missing digit", chat.RegisterRequest{Email: "test@example.com", Name: "Alice", Password: "NoDigitPass!"}, errors.ErrInvalidPassword},
		{"Missing special char", chat.RegisterRequest{Email: "test@example.com", Name: "Alice", Password: "NoSpecialChar123"}, errors.ErrInvalidPassword},
		{"Missing uppercase", chat.RegisterRequest{Email: "test@example.com", Name: "Alice", Password: "nouppercase123!"}, errors.ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(tt.req)
			if tt.wantErr == nil {
				req.NoError(err)
				return
			}
			req.ErrorIs(err, tt.wantErr)
		})
	}
}

func TestTokenIssuer_Round_Trip(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer(secret, time.Hour)

	token, err := issuer.GenerateToken(42, "alice@example.com")
	req.NoError(err)

	claims, err := issuer.ValidateToken(token)
	req.NoError(err)
	req.Equal(chat.UserID(42), claims.UserID)
	req.Equal("alice@example.com", claims.Email)
	req.Equal("42", claims.Subject)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer(secret, time.Hour)

	// Expired
	expired := NewTokenIssuer(secret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := expired.GenerateToken(1, "a@example.com")
	req.NoError(err)
	_, err = issuer.ValidateToken(token)
	req.ErrorIs(err, errors.ErrInvalidToken)

	// Signed with another secret
	token, err = NewTokenIssuer("another-secret-entirely", time.Hour).GenerateToken(1, "a@example.com")
	req.NoError(err)
	_, err = issuer.ValidateToken(token)
	req.ErrorIs(err, errors.ErrInvalidToken)

	// Garbage
	_, err = issuer.ValidateToken("not-a-jwt")
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestJWTVerifier(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockIUserRepository(ctrl)
	issuer := NewTokenIssuer(secret, time.Hour)
	verifier := NewJWTVerifier(issuer, users)

	token, err := issuer.GenerateToken(7, "bob@example.com")
	req.NoError(err)

	// Given the user exists
	users.EXPECT().GetUserByID(chat.UserID(7)).Return(chat.User{ID: 7}, nil).Times(1)
	userID, err := verifier.VerifyToken(context.Background(), token)
	req.NoError(err)
	req.Equal(chat.UserID(7), userID)

	// Given the user has been removed since the token was issued
	users.EXPECT().GetUserByID(chat.UserID(7)).Return(chat.User{}, errors.ErrUserNotFound).Times(1)
	_, err = verifier.VerifyToken(context.Background(), token)
	req.ErrorIs(err, errors.ErrInvalidToken)

	// Missing and forged tokens never reach the repository
	_, err = verifier.VerifyToken(context.Background(), "")
	req.ErrorIs(err, errors.ErrInvalidToken)
	_, err = verifier.VerifyToken(context.Background(), token+"x")
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
