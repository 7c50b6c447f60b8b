// Package event holds the outbound payloads pushed to live connections
// and the reports produced while fanning them out.
package event

import "chat-relay/domain/chat"

// MessageSent is pushed to every live connection of every chat member.
type MessageSent struct {
	ID        chat.MessageID `json:"id"`
	ChatID    chat.ChatID    `json:"chat_id"`
	SenderID  chat.UserID    `json:"sender_id"`
	Text      string         `json:"text"`
	Timestamp int64          `json:"timestamp"`
	IsRead    bool           `json:"is_read"`
}

func NewMessageSent(m chat.Message) MessageSent {
	return MessageSent{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		Timestamp: m.Timestamp,
		IsRead:    m.IsRead,
	}
}

// MessageRead is pushed to the original sender only, the first time
// one of the recipients acknowledges the message.
type MessageRead struct {
	ID      chat.MessageID   `json:"id"`
	ChatID  chat.ChatID      `json:"chat_id"`
	Command chat.CommandName `json:"command"`
}

func NewMessageRead(m chat.Message) MessageRead {
	return MessageRead{ID: m.ID, ChatID: m.ChatID, Command: chat.ReadMessage}
}

// ErrorFrame rejects a command without closing the connection.
type ErrorFrame struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorFrame(code, message string) ErrorFrame {
	return ErrorFrame{Error: ErrorBody{Code: code, Message: message}}
}
