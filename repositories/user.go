//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IUserRepository interface {
	CreateUser(email, name, hashedPassword string) (chat.User, error)
	GetUserByEmail(email string) (chat.User, error)
	GetUserByID(id chat.UserID) (chat.User, error)
}

type UserRepository struct {
	db  *badger.DB
	seq *badger.Sequence
}

func NewUserRepository(db *badger.DB) (*UserRepository, error) {
	seq, err := db.GetSequence([]byte(userSequenceKey), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("user sequence: %w", err)
	}
	return &UserRepository{db: db, seq: seq}, nil
}

func (u *UserRepository) Close() error {
	return u.seq.Release()
}

// DiskUser is the stored form of an account.
type DiskUser struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"password_hash"`
	CreatedAt    int64  `json:"created_at"`
}

// CreateUser persists a user whose password has already been hashed.
// Emails are compared case-insensitively.
func (u *UserRepository) CreateUser(email, name, hashedPassword string) (chat.User, error) {
	id, err := nextID(u.seq)
	if err != nil {
		return chat.User{}, err
	}
	user := chat.User{
		ID:           chat.UserID(id),
		Email:        strings.ToLower(email),
		Name:         name,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().Unix(),
	}
	data, err := json.Marshal(fromUser(user))
	if err != nil {
		return chat.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = update(u.db, func(txn *badger.Txn) error {
		emailKey := userEmailKey(user.Email)
		taken, err := exists(txn, emailKey)
		if err != nil {
			return err
		}
		if taken {
			return errors.ErrUserAlreadyExists
		}
		if err = txn.Set(userKey(user.ID), data); err != nil {
			return err
		}
		return txn.Set(emailKey, encodeID(int64(user.ID)))
	})
	if err != nil {
		return chat.User{}, err
	}
	return user, nil
}

func (u *UserRepository) GetUserByEmail(email string) (chat.User, error) {
	var user chat.User
	err := u.db.View(func(txn *badger.Txn) error {
		id, err := readID(txn, userEmailKey(strings.ToLower(email)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		user, err = getUser(txn, chat.UserID(id))
		return err
	})
	if err != nil {
		return chat.User{}, storageError(err)
	}
	return user, nil
}

func (u *UserRepository) GetUserByID(id chat.UserID) (chat.User, error) {
	var user chat.User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	if err != nil {
		return chat.User{}, storageError(err)
	}
	return user, nil
}

func getUser(txn *badger.Txn, id chat.UserID) (chat.User, error) {
	item, err := txn.Get(userKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return chat.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return chat.User{}, err
	}
	var du DiskUser
	if err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &du)
	}); err != nil {
		return chat.User{}, err
	}
	return toUser(du), nil
}

func fromUser(user chat.User) DiskUser {
	return DiskUser{
		ID:           int64(user.ID),
		Email:        user.Email,
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
}

func toUser(du DiskUser) chat.User {
	return chat.User{
		ID:           chat.UserID(du.ID),
		Email:        du.Email,
		Name:         du.Name,
		PasswordHash: du.PasswordHash,
		CreatedAt:    du.CreatedAt,
	}
}
