//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const defaultHistoryLimit = 100

// IMessageRepository is the persistence boundary for messages and their read state.
type IMessageRepository interface {
	InsertMessage(msg chat.Message) (chat.Message, error)
	FindMessageByID(id chat.MessageID) (chat.Message, error)
	SetMessageRead(id chat.MessageID) (bool, error)
	History(chatID chat.ChatID, limit, offset int) ([]chat.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	seq           *badger.Sequence
	limitMessages *int
}

// NewMessageRepository leases a block of message IDs from badger.
// Call Close to hand back the unused part of the lease.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte(messageSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, log: log, seq: seq, limitMessages: limitMessages}, nil
}

func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

type DiskMessage struct {
	ID              int64  `json:"id"`
	ChatID          int64  `json:"chat_id"`
	SenderID        int64  `json:"sender_id"`
	Text            string `json:"text"`
	Timestamp       int64  `json:"timestamp"`
	IsRead          bool   `json:"is_read"`
	ClientMessageID string `json:"client_message_id"`
}

// InsertMessage assigns an ID and persists the message, its history entry and
// its idempotency key in one transaction.
// The idempotency key is checked inside the same transaction, so two concurrent
// inserts with the same key end with one message and one ErrDuplicateMessage.
func (m *MessageRepository) InsertMessage(msg chat.Message) (chat.Message, error) {
	id, err := nextID(m.seq)
	if err != nil {
		return chat.Message{}, err
	}
	msg.ID = chat.MessageID(id)
	msg.IsRead = false

	data, err := json.Marshal(fromMessage(msg))
	if err != nil {
		return chat.Message{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = update(m.db, func(txn *badger.Txn) error {
		idemKey := idempotencyKey(msg.SenderID, msg.ClientMessageID)
		duplicate, err := exists(txn, idemKey)
		if err != nil {
			return err
		}
		if duplicate {
			return fmt.Errorf("%w (client id: %s)", errors.ErrDuplicateMessage, msg.ClientMessageID)
		}

		found, err := exists(txn, chatKey(msg.ChatID))
		if err != nil {
			return err
		}
		if !found {
			return errors.ErrChatNotFound
		}

		member, err := exists(txn, memberKey(msg.ChatID, msg.SenderID))
		if err != nil {
			return err
		}
		if !member {
			return errors.ErrForbidden
		}

		if err = txn.Set(messageKey(msg.ID), data); err != nil {
			return err
		}
		if err = txn.Set(historyKey(msg), nil); err != nil {
			return err
		}
		return txn.Set(idemKey, encodeID(int64(msg.ID)))
	})
	if err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

func (m *MessageRepository) FindMessageByID(id chat.MessageID) (chat.Message, error) {
	var msg chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		var err error
		msg, err = getMessage(txn, id)
		return err
	})
	if err != nil {
		return chat.Message{}, storageError(err)
	}
	return msg, nil
}

// SetMessageRead flips the read flag and reports whether it actually changed.
// A message already read is left untouched.
func (m *MessageRepository) SetMessageRead(id chat.MessageID) (bool, error) {
	var changed bool
	err := update(m.db, func(txn *badger.Txn) error {
		changed = false
		msg, err := getMessage(txn, id)
		if err != nil {
			return err
		}
		if msg.IsRead {
			return nil
		}
		msg.IsRead = true
		data, err := json.Marshal(fromMessage(msg))
		if err != nil {
			return err
		}
		if err = txn.Set(messageKey(id), data); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// History returns the messages of a chat ordered by ascending (timestamp, id).
// A non-positive limit falls back to the configured default.
func (m *MessageRepository) History(chatID chat.ChatID, limit, offset int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
		if m.limitMessages != nil {
			limit = *m.limitMessages
		}
	}
	offset = max(offset, 0)

	var messages []chat.Message
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := historyPrefix(chatID)
		skipped := 0
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if len(messages) == limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", limit))
				break
			}
			id, err := messageIDFromHistoryKey(it.Item().Key())
			if err != nil {
				return err
			}
			msg, err := getMessage(txn, id)
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	return messages, nil
}

func getMessage(txn *badger.Txn, id chat.MessageID) (chat.Message, error) {
	item, err := txn.Get(messageKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Message{}, errors.ErrMessageNotFound
	}
	if err != nil {
		return chat.Message{}, err
	}
	var dm DiskMessage
	if err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &dm)
	}); err != nil {
		return chat.Message{}, err
	}
	return toMessage(dm), nil
}

func messageIDFromHistoryKey(key []byte) (chat.MessageID, error) {
	k := string(key)
	id, err := strconv.ParseInt(k[strings.LastIndexByte(k, ':')+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupted history key %q: %w", k, err)
	}
	return chat.MessageID(id), nil
}

func fromMessage(msg chat.Message) DiskMessage {
	return DiskMessage{
		ID:              int64(msg.ID),
		ChatID:          int64(msg.ChatID),
		SenderID:        int64(msg.SenderID),
		Text:            msg.Text,
		Timestamp:       msg.Timestamp,
		IsRead:          msg.IsRead,
		ClientMessageID: msg.ClientMessageID,
	}
}

func toMessage(dm DiskMessage) chat.Message {
	return chat.Message{
		ID:              chat.MessageID(dm.ID),
		ChatID:          chat.ChatID(dm.ChatID),
		SenderID:        chat.UserID(dm.SenderID),
		Text:            dm.Text,
		Timestamp:       dm.Timestamp,
		IsRead:          dm.IsRead,
		ClientMessageID: dm.ClientMessageID,
	}
}
