package errors

import (
	"errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	// Messaging core
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
	ErrMalformedPayload   = fmt.Errorf("invalid message format")
	ErrUnknownCommand     = fmt.Errorf("unknown command")
	ErrDuplicateMessage   = fmt.Errorf("duplicate message detected")
	ErrChatNotFound       = fmt.Errorf("chat not found")
	ErrMessageNotFound    = fmt.Errorf("message not found")
	ErrForbidden          = fmt.Errorf("you are not a member of this chat")
	ErrRateLimited        = fmt.Errorf("too many frames")
	ErrTransportFailure   = fmt.Errorf("transport failure")
	ErrSendBufferFull     = fmt.Errorf("send buffer full")
	ErrConnectionClosed   = fmt.Errorf("connection closed")
	ErrStorageUnavailable = fmt.Errorf("storage unavailable")

	// Accounts
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password must mix upper and lower case letters, digits and symbols")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")

	ErrInvalidRegistration = fmt.Errorf("invalid registration request")

	// Chat management
	ErrInvalidChatRequest = fmt.Errorf("invalid chat request")
	ErrChatAlreadyExists  = fmt.Errorf("chat already exists")
	ErrSelfChat           = fmt.Errorf("cannot create a chat with yourself")
	ErrAlreadyMember      = fmt.Errorf("user is already a member of this chat")
	ErrNotGroupChat       = fmt.Errorf("users cannot be added to a private chat")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
