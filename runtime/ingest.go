package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

var _ contract.IIngestor = (*Ingestor)(nil)

// TextFilter rewrites message text before it is stored.
type TextFilter interface {
	Censor(text string) string
}

// Ingestor turns a SEND_MESSAGE payload into a persisted message.
type Ingestor struct {
	log      *slog.Logger
	messages repositories.IMessageRepository
	filter   TextFilter
	now      func() time.Time
}

func NewIngestor(log *slog.Logger, messages repositories.IMessageRepository) *Ingestor {
	return &Ingestor{log: log, messages: messages, now: time.Now}
}

// WithFilter masks text through f. A nil filter leaves text untouched.
func (i *Ingestor) WithFilter(f TextFilter) *Ingestor {
	i.filter = f
	return i
}

// Ingest validates the payload and persists it once.
// Errors: ErrMalformedPayload, ErrDuplicateMessage, ErrChatNotFound, ErrForbidden,
// and ErrStorageUnavailable for anything the storage could not complete.
func (i *Ingestor) Ingest(ctx context.Context, payload json.RawMessage, sender chat.UserID) (chat.Message, error) {
	cmd, err := decode[chat.SendMessageCommand](payload)
	if err != nil {
		return chat.Message{}, err
	}
	if err = ctx.Err(); err != nil {
		return chat.Message{}, err
	}

	text := *cmd.Text
	if i.filter != nil {
		text = i.filter.Censor(text)
	}

	msg, err := i.messages.InsertMessage(chat.Message{
		ChatID:          *cmd.ChatID,
		SenderID:        sender,
		Text:            text,
		Timestamp:       i.now().Unix(),
		ClientMessageID: cmd.ClientMessageID,
	})
	switch {
	case err == nil:
		i.log.Debug("Message persisted", "message_id", msg.ID, "chat_id", msg.ChatID, "sender_id", sender)
		return msg, nil
	case errors.Is(err, errors.ErrDuplicateMessage),
		errors.Is(err, errors.ErrChatNotFound),
		errors.Is(err, errors.ErrForbidden),
		errors.Is(err, errors.ErrStorageUnavailable):
		return chat.Message{}, err
	default:
		return chat.Message{}, fmt.Errorf("%w: %v", errors.ErrStorageUnavailable, err)
	}
}
