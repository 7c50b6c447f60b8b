package repositories

import (
	"chat-relay/domain/chat"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newChatRepository(t *testing.T, db *badger.DB) *ChatRepository {
	t.Helper()
	repository, err := NewChatRepository(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func newMessageRepository(t *testing.T, db *badger.DB, limit *int) *MessageRepository {
	t.Helper()
	repository, err := NewMessageRepository(db, slog.Default(), limit)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func newUserRepository(t *testing.T, db *badger.DB) *UserRepository {
	t.Helper()
	repository, err := NewUserRepository(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repository.Close() })
	return repository
}

func newGroup(t *testing.T, chats *ChatRepository, members ...chat.UserID) chat.Chat {
	t.Helper()
	return newNamedGroup(t, chats, "group", members...)
}

// newNamedGroup is created by members[0], who joins it first.
func newNamedGroup(t *testing.T, chats *ChatRepository, name string, members ...chat.UserID) chat.Chat {
	t.Helper()
	c, err := chats.CreateGroupChat(members[0], name)
	require.NoError(t, err)
	for _, member := range members[1:] {
		require.NoError(t, chats.AddMember(c.ID, member))
	}
	return c
}
