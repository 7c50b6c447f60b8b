package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newMockConnection(ctrl *gomock.Controller, id string, userID chat.UserID) *mocks.MockConnection {
	conn := mocks.NewMockConnection(ctrl)
	conn.EXPECT().ID().Return(id).AnyTimes()
	conn.EXPECT().UserID().Return(userID).AnyTimes()
	return conn
}

func TestDispatcher_DispatchMessage_Group_With_Offline_Member(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	chats := mocks.NewMockIChatRepository(ctrl)
	registry := NewRegistry()
	dispatcher := NewDispatcher(log, registry, chats, 50*time.Millisecond)

	msg := chat.Message{ID: 10, ChatID: 5, SenderID: 1, Text: "hi", Timestamp: 1700000000}
	expected, err := json.Marshal(event.NewMessageSent(msg))
	req.NoError(err)

	// Given a group {A,B,C} where A has two devices, C one and B is offline
	chats.EXPECT().ChatMembers(chat.ChatID(5)).Return([]chat.UserID{1, 2, 3}, nil).Times(1)
	for _, c := range []struct {
		id     string
		userID chat.UserID
	}{{"a-phone", 1}, {"a-laptop", 1}, {"c-phone", 3}} {
		conn := newMockConnection(ctrl, c.id, c.userID)
		conn.EXPECT().Send(gomock.Any(), expected).Return(nil).Times(1)
		registry.Register(c.userID, conn)
	}

	// When A's message is dispatched
	report, err := dispatcher.DispatchMessage(context.Background(), msg)

	// Then every live connection got the same frame and B is only offline
	req.NoError(err)
	req.Equal(event.DeliveryReport{Recipients: 3, Delivered: 3, Pruned: 0, Offline: 1}, report)
}

func TestDispatcher_Prunes_Failing_Connection_And_Continues(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	chats := mocks.NewMockIChatRepository(ctrl)
	registry := NewRegistry()
	dispatcher := NewDispatcher(log, registry, chats, 50*time.Millisecond)

	chats.EXPECT().ChatMembers(gomock.Any()).Return([]chat.UserID{1, 2}, nil).Times(1)

	// Given B's only connection is stuck
	stuck := newMockConnection(ctrl, "b-stuck", 2)
	stuck.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, frame []byte) error {
			<-ctx.Done()
			return errors.ErrSendBufferFull
		}).Times(1)
	stuck.EXPECT().Close(contract.CloseTryAgainLater, gomock.Any()).Return(nil).Times(1)
	registry.Register(2, stuck)

	healthy := newMockConnection(ctrl, "a-phone", 1)
	healthy.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	registry.Register(1, healthy)

	// When a message is dispatched
	report, err := dispatcher.DispatchMessage(context.Background(), chat.Message{ID: 1, ChatID: 5, SenderID: 1})

	// Then the stuck connection is pruned and the healthy one still served
	req.NoError(err)
	req.Equal(1, report.Delivered)
	req.Equal(1, report.Pruned)
	req.Empty(registry.ConnectionsFor(2))
	req.Len(registry.ConnectionsFor(1), 1)
}

func TestDispatcher_ReadNotification_Targets_Sender_Only(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	chats := mocks.NewMockIChatRepository(ctrl)
	registry := NewRegistry()
	dispatcher := NewDispatcher(log, registry, chats, 50*time.Millisecond)

	msg := chat.Message{ID: 10, ChatID: 5, SenderID: 1, Text: "hi"}

	sender := newMockConnection(ctrl, "sender", 1)
	sender.EXPECT().Send(gomock.Any(), []byte(`{"id":10,"chat_id":5,"command":"READ_MESSAGE"}`)).Return(nil).Times(1)
	registry.Register(1, sender)
	// The reader's own connection must not be notified
	registry.Register(2, newMockConnection(ctrl, "reader", 2))

	report, err := dispatcher.DispatchReadNotification(context.Background(), msg)

	req.NoError(err)
	req.Equal(event.DeliveryReport{Recipients: 1, Delivered: 1}, report)
}

func TestDispatcher_Unknown_Chat(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	chats := mocks.NewMockIChatRepository(ctrl)
	dispatcher := NewDispatcher(log, NewRegistry(), chats, 50*time.Millisecond)

	chats.EXPECT().ChatMembers(gomock.Any()).Return(nil, errors.ErrChatNotFound).Times(1)

	_, err := dispatcher.DispatchMessage(context.Background(), chat.Message{ChatID: 9})

	req.ErrorIs(err, errors.ErrChatNotFound)
}
