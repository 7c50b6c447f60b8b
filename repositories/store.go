package repositories

import (
	"chat-relay/errors"
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	sequenceBandwidth  = 100
	maxConflictRetries = 5
)

// domainErrors pass through storageError untouched.
var domainErrors = []error{
	errors.ErrDuplicateMessage,
	errors.ErrChatNotFound,
	errors.ErrMessageNotFound,
	errors.ErrForbidden,
	errors.ErrUserAlreadyExists,
	errors.ErrUserNotFound,
	errors.ErrChatAlreadyExists,
	errors.ErrAlreadyMember,
	errors.ErrNotGroupChat,
}

// storageError keeps domain errors as they are and marks everything else
// coming out of badger as a storage failure.
func storageError(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range domainErrors {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", errors.ErrStorageUnavailable, err)
}

// update runs fn in a read-write transaction and replays it when a
// concurrent commit touched the same keys. The replay sees the winner's
// writes, so uniqueness checks inside fn report the conflict as a domain error.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return storageError(err)
		}
	}
	return storageError(err)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func encodeID(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func decodeID(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func readID(txn *badger.Txn, key []byte) (int64, error) {
	item, err := txn.Get(key)
	if err != nil {
		return 0, err
	}
	var id int64
	err = item.Value(func(val []byte) error {
		id = decodeID(val)
		return nil
	})
	return id, err
}

// nextID draws from a badger sequence, which starts at 0.
func nextID(seq *badger.Sequence) (int64, error) {
	n, err := seq.Next()
	if err != nil {
		return 0, storageError(err)
	}
	return int64(n) + 1, nil
}
