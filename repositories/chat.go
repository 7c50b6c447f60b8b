//go:generate go run go.uber.org/mock/mockgen -source=chat.go -destination=../mocks/mock_chat_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

// IChatRepository owns chats and their membership.
type IChatRepository interface {
	CreateDirectChat(a, b chat.UserID) (chat.Chat, error)
	CreateGroupChat(creator chat.UserID, name string) (chat.Chat, error)
	GetChat(id chat.ChatID) (chat.Chat, error)
	ListForUser(userID chat.UserID) ([]chat.Chat, error)
	AddMember(chatID chat.ChatID, userID chat.UserID) error
	RemoveMember(chatID chat.ChatID, userID chat.UserID) error
	ChatMembers(chatID chat.ChatID) ([]chat.UserID, error)
	IsMember(chatID chat.ChatID, userID chat.UserID) (bool, error)
}

type ChatRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewChatRepository(db *badger.DB) (*ChatRepository, error) {
	seq, err := db.GetSequence([]byte(chatSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("chat sequence: %w", err)
	}
	return &ChatRepository{db: db, seq: seq}, nil
}

func (r *ChatRepository) Close() error {
	return r.seq.Release()
}

type DiskChat struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	IsGroup bool   `json:"is_group"`
}

// CreateDirectChat creates the two-member chat between a and b.
// There is at most one direct chat per pair of users.
func (r *ChatRepository) CreateDirectChat(a, b chat.UserID) (chat.Chat, error) {
	id, err := nextID(r.seq)
	if err != nil {
		return chat.Chat{}, err
	}
	c := chat.Chat{ID: chat.ChatID(id)}

	err = update(r.db, func(txn *badger.Txn) error {
		pairKey := directChatKey(a, b)
		found, err := exists(txn, pairKey)
		if err != nil {
			return err
		}
		if found {
			return errors.ErrChatAlreadyExists
		}
		if err = putChat(txn, c); err != nil {
			return err
		}
		if err = txn.Set(pairKey, encodeID(int64(c.ID))); err != nil {
			return err
		}
		if err = putMember(txn, c.ID, a); err != nil {
			return err
		}
		return putMember(txn, c.ID, b)
	})
	if err != nil {
		return chat.Chat{}, err
	}
	return c, nil
}

// CreateGroupChat creates a named chat whose first member is its creator.
// A creator cannot own two groups with the same name.
func (r *ChatRepository) CreateGroupChat(creator chat.UserID, name string) (chat.Chat, error) {
	id, err := nextID(r.seq)
	if err != nil {
		return chat.Chat{}, err
	}
	c := chat.Chat{ID: chat.ChatID(id), Name: name, IsGroup: true}

	err = update(r.db, func(txn *badger.Txn) error {
		nameKey := groupChatKey(creator, name)
		found, err := exists(txn, nameKey)
		if err != nil {
			return err
		}
		if found {
			return errors.ErrChatAlreadyExists
		}
		if err = putChat(txn, c); err != nil {
			return err
		}
		if err = txn.Set(nameKey, encodeID(int64(c.ID))); err != nil {
			return err
		}
		return putMember(txn, c.ID, creator)
	})
	if err != nil {
		return chat.Chat{}, err
	}
	return c, nil
}

func (r *ChatRepository) GetChat(id chat.ChatID) (chat.Chat, error) {
	var c chat.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		c, err = getChat(txn, id)
		return err
	})
	if err != nil {
		return chat.Chat{}, storageError(err)
	}
	return c, nil
}

func (r *ChatRepository) ListForUser(userID chat.UserID) ([]chat.Chat, error) {
	var chats []chat.Chat
	err := r.db.View(func(txn *badger.Txn) error {
		ids, err := scanIDs(txn, userChatsPrefix(userID))
		if err != nil {
			return err
		}
		for _, id := range ids {
			c, err := getChat(txn, chat.ChatID(id))
			if err != nil {
				return err
			}
			chats = append(chats, c)
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	return chats, nil
}

// AddMember adds a user to a group chat. Direct chats keep their two members.
func (r *ChatRepository) AddMember(chatID chat.ChatID, userID chat.UserID) error {
	return update(r.db, func(txn *badger.Txn) error {
		c, err := getChat(txn, chatID)
		if err != nil {
			return err
		}
		if c.IsDirect() {
			return errors.ErrNotGroupChat
		}
		member, err := exists(txn, memberKey(chatID, userID))
		if err != nil {
			return err
		}
		if member {
			return errors.ErrAlreadyMember
		}
		return putMember(txn, chatID, userID)
	})
}

// RemoveMember lets a user leave a group chat.
func (r *ChatRepository) RemoveMember(chatID chat.ChatID, userID chat.UserID) error {
	return update(r.db, func(txn *badger.Txn) error {
		c, err := getChat(txn, chatID)
		if err != nil {
			return err
		}
		member, err := exists(txn, memberKey(chatID, userID))
		if err != nil {
			return err
		}
		if !member {
			return errors.ErrForbidden
		}
		if c.IsDirect() {
			return errors.ErrNotGroupChat
		}
		if err = txn.Delete(memberKey(chatID, userID)); err != nil {
			return err
		}
		return txn.Delete(userChatKey(userID, chatID))
	})
}

// ChatMembers resolves the fan-out targets of a chat.
func (r *ChatRepository) ChatMembers(chatID chat.ChatID) ([]chat.UserID, error) {
	var members []chat.UserID
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := exists(txn, chatKey(chatID))
		if err != nil {
			return err
		}
		if !found {
			return errors.ErrChatNotFound
		}
		ids, err := scanIDs(txn, memberPrefix(chatID))
		if err != nil {
			return err
		}
		members = lo.Map(ids, func(id int64, _ int) chat.UserID { return chat.UserID(id) })
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	return members, nil
}

func (r *ChatRepository) IsMember(chatID chat.ChatID, userID chat.UserID) (bool, error) {
	var member bool
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := exists(txn, chatKey(chatID))
		if err != nil {
			return err
		}
		if !found {
			return errors.ErrChatNotFound
		}
		member, err = exists(txn, memberKey(chatID, userID))
		return err
	})
	if err != nil {
		return false, storageError(err)
	}
	return member, nil
}

func putChat(txn *badger.Txn, c chat.Chat) error {
	data, err := json.Marshal(DiskChat{ID: int64(c.ID), Name: c.Name, IsGroup: c.IsGroup})
	if err != nil {
		return err
	}
	return txn.Set(chatKey(c.ID), data)
}

func putMember(txn *badger.Txn, chatID chat.ChatID, userID chat.UserID) error {
	if err := txn.Set(memberKey(chatID, userID), nil); err != nil {
		return err
	}
	return txn.Set(userChatKey(userID, chatID), nil)
}

func getChat(txn *badger.Txn, id chat.ChatID) (chat.Chat, error) {
	item, err := txn.Get(chatKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.Chat{}, errors.ErrChatNotFound
	}
	if err != nil {
		return chat.Chat{}, err
	}
	var dc DiskChat
	if err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &dc)
	}); err != nil {
		return chat.Chat{}, err
	}
	return chat.Chat{ID: chat.ChatID(dc.ID), Name: dc.Name, IsGroup: dc.IsGroup}, nil
}

// scanIDs collects the trailing numeric part of every key under prefix.
func scanIDs(txn *badger.Txn, prefix []byte) ([]int64, error) {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()

	var ids []int64
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().Key()
		id, err := strconv.ParseInt(string(key[len(prefix):]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupted key %q: %w", key, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
