package chat

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest is the body of POST /auth/token, as JSON or as an OAuth2 password form.
type LoginRequest struct {
	Email    string `json:"email" form:"username" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Token is a signed access token.
type Token string

func (t Token) String() string {
	return string(t)
}

// CreateChatRequest creates a group when IsGroup is set, a direct chat with
// RecipientID otherwise.
type CreateChatRequest struct {
	Name        string  `json:"name"`
	IsGroup     bool    `json:"is_group"`
	RecipientID *UserID `json:"recipient_id"`
}
