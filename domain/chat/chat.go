// Package chat contains the core concepts of the messaging system.
// Chats are owned by storage; the runtime only reads their membership
// to resolve fan-out targets.
package chat

type UserID int64

type ChatID int64

type MessageID int64

// Chat is either direct (exactly two members, immutable membership)
// or group (named, mutable membership).
type Chat struct {
	ID      ChatID `json:"id"`
	Name    string `json:"name,omitempty"`
	IsGroup bool   `json:"is_group"`
}

func (c Chat) IsDirect() bool {
	return !c.IsGroup
}

type User struct {
	ID           UserID
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    int64
}
