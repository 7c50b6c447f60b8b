package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	issuer := NewTokenIssuer(secret, time.Hour)
	valid, err := issuer.GenerateToken(3, "carol@example.com")
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedBody   string
	}{
		{"missing authorization header", "", http.StatusUnauthorized, "Authorization header is required"},
		{"no bearer prefix", "Basic token123", http.StatusUnauthorized, "Invalid authorization header format"},
		{"invalid token", "Bearer invalid-token", http.StatusUnauthorized, "Invalid or expired token"},
		{"valid token", "Bearer " + valid, http.StatusOK, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			app := fiber.New()
			app.Get("/protected", Middleware(issuer), func(c *fiber.Ctx) error {
				userID, ok := UserID(c)
				if !ok {
					return fiber.ErrInternalServerError
				}
				return c.JSON(userID)
			})

			request := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.authHeader != "" {
				request.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(request)
			req.NoError(err)
			defer func() { _ = resp.Body.Close() }()

			body, err := io.ReadAll(resp.Body)
			req.NoError(err)
			req.Equal(tt.expectedStatus, resp.StatusCode)
			req.Contains(string(body), tt.expectedBody)
		})
	}
}

func TestUserID_Missing(t *testing.T) {
	req := require.New(t)
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		_, ok := UserID(c)
		req.False(ok)
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	req.NoError(err)
	req.Equal(fiber.StatusNoContent, resp.StatusCode)
}
