package chat

import "encoding/json"

type CommandName string

const (
	SendMessage CommandName = "SEND_MESSAGE"
	ReadMessage CommandName = "READ_MESSAGE"
)

const MaxTextLength = 500

// Envelope is the inbound frame read from a live connection.
type Envelope struct {
	Command CommandName     `json:"command" validate:"required"`
	Payload json.RawMessage `json:"payload"`
}

// SendMessageCommand is the payload of SEND_MESSAGE.
// Pointers distinguish an absent field from a zero value.
type SendMessageCommand struct {
	ChatID          *ChatID `json:"chat_id" validate:"required,gt=0"`
	Text            *string `json:"text" validate:"required,min=1,max=500"`
	ClientMessageID string  `json:"client_message_id" validate:"required,max=128"`
}

// ReadMessageCommand is the payload of READ_MESSAGE.
type ReadMessageCommand struct {
	ID *MessageID `json:"id" validate:"required,gt=0"`
}
