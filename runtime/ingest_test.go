package runtime

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/moderation"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestIngestor(messages *mocks.MockIMessageRepository) *Ingestor {
	ingestor := NewIngestor(logs.GetLoggerFromLevel(slog.LevelDebug), messages)
	ingestor.now = func() time.Time { return time.Unix(1700000000, 0) }
	return ingestor
}

func TestIngestor_Persists_Valid_Payload(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockIMessageRepository(ctrl)
	ingestor := newTestIngestor(messages)

	// Given a well-formed SEND_MESSAGE payload
	payload := json.RawMessage(`{"chat_id":5,"text":"hi","client_message_id":"c-1"}`)
	messages.EXPECT().InsertMessage(chat.Message{
		ChatID:          5,
		SenderID:        1,
		Text:            "hi",
		Timestamp:       1700000000,
		ClientMessageID: "c-1",
	}).DoAndReturn(func(msg chat.Message) (chat.Message, error) {
		msg.ID = 42
		return msg, nil
	}).Times(1)

	// When it is ingested
	msg, err := ingestor.Ingest(context.Background(), payload, 1)

	// Then the stored message comes back with its ID
	req.NoError(err)
	req.Equal(chat.MessageID(42), msg.ID)
	req.Equal(chat.UserID(1), msg.SenderID)
	req.False(msg.IsRead)
}

func TestIngestor_Rejects_Malformed_Payloads(t *testing.T) {
	tooLong := strings.Repeat("é", chat.MaxTextLength+1)
	maxLength := strings.Repeat("é", chat.MaxTextLength)

	cases := []struct {
		name    string
		payload string
		valid   bool
	}{
		{name: "missing chat_id", payload: `{"text":"hi","client_message_id":"c-1"}`},
		{name: "zero chat_id", payload: `{"chat_id":0,"text":"hi","client_message_id":"c-1"}`},
		{name: "negative chat_id", payload: `{"chat_id":-3,"text":"hi","client_message_id":"c-1"}`},
		{name: "missing text", payload: `{"chat_id":5,"client_message_id":"c-1"}`},
		{name: "empty text", payload: `{"chat_id":5,"text":"","client_message_id":"c-1"}`},
		{name: "text too long", payload: fmt.Sprintf(`{"chat_id":5,"text":%q,"client_message_id":"c-1"}`, tooLong)},
		{name: "missing client_message_id", payload: `{"chat_id":5,"text":"hi"}`},
		{name: "chat_id not a number", payload: `{"chat_id":"five","text":"hi","client_message_id":"c-1"}`},
		{name: "not json", payload: `hello`},
		{name: "empty", payload: ``},
		{name: "text at max length", payload: fmt.Sprintf(`{"chat_id":5,"text":%q,"client_message_id":"c-1"}`, maxLength), valid: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			messages := mocks.NewMockIMessageRepository(ctrl)
			ingestor := newTestIngestor(messages)

			if tc.valid {
				messages.EXPECT().InsertMessage(gomock.Any()).
					DoAndReturn(func(msg chat.Message) (chat.Message, error) { return msg, nil }).Times(1)
			} else {
				messages.EXPECT().InsertMessage(gomock.Any()).Times(0)
			}

			_, err := ingestor.Ingest(context.Background(), json.RawMessage(tc.payload), 1)

			if tc.valid {
				req.NoError(err)
				return
			}
			req.ErrorIs(err, errors.ErrMalformedPayload)
		})
	}
}

func TestIngestor_Passes_Domain_Errors_Through(t *testing.T) {
	for _, domainErr := range []error{
		errors.ErrDuplicateMessage,
		errors.ErrChatNotFound,
		errors.ErrForbidden,
		errors.ErrStorageUnavailable,
	} {
		t.Run(domainErr.Error(), func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			messages := mocks.NewMockIMessageRepository(ctrl)
			ingestor := newTestIngestor(messages)

			messages.EXPECT().InsertMessage(gomock.Any()).
				Return(chat.Message{}, fmt.Errorf("%w (client id: c-1)", domainErr)).Times(1)

			_, err := ingestor.Ingest(context.Background(),
				json.RawMessage(`{"chat_id":5,"text":"hi","client_message_id":"c-1"}`), 1)

			req.ErrorIs(err, domainErr)
		})
	}
}

func TestIngestor_Wraps_Unknown_Errors_As_Storage_Unavailable(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockIMessageRepository(ctrl)
	ingestor := newTestIngestor(messages)

	messages.EXPECT().InsertMessage(gomock.Any()).Return(chat.Message{}, fmt.Errorf("disk on fire")).Times(1)

	_, err := ingestor.Ingest(context.Background(),
		json.RawMessage(`{"chat_id":5,"text":"hi","client_message_id":"c-1"}`), 1)

	req.ErrorIs(err, errors.ErrStorageUnavailable)
}

func TestIngestor_Cancelled_Context_Persists_Nothing(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockIMessageRepository(ctrl)
	ingestor := newTestIngestor(messages)
	messages.EXPECT().InsertMessage(gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ingestor.Ingest(ctx, json.RawMessage(`{"chat_id":5,"text":"hi","client_message_id":"c-1"}`), 1)

	req.ErrorIs(err, context.Canceled)
}

func TestIngestor_Masks_Text_Before_Persisting(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	messages := mocks.NewMockIMessageRepository(ctrl)
	filter, err := moderation.NewFilter("badger", '*')
	req.NoError(err)
	ingestor := newTestIngestor(messages).WithFilter(filter)

	// Given a text holding a blacklisted word
	payload := json.RawMessage(`{"chat_id":5,"text":"the B4dger again","client_message_id":"c-2"}`)

	// Then the stored text is masked
	messages.EXPECT().InsertMessage(gomock.Any()).
		DoAndReturn(func(msg chat.Message) (chat.Message, error) {
			req.Equal("the ****** again", msg.Text)
			msg.ID = 43
			return msg, nil
		}).Times(1)

	// When it is ingested
	msg, err := ingestor.Ingest(context.Background(), payload, 1)
	req.NoError(err)
	req.Equal("the ****** again", msg.Text)
}
