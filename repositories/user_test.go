package repositories

import (
	"chat-relay/errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Create_And_Get_User(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	repository := newUserRepository(t, db)

	user, err := repository.CreateUser("Alice@Example.com", "Alice", "hash")
	req.NoError(err)
	req.Positive(int64(user.ID))

	byEmail, err := repository.GetUserByEmail("alice@example.com")
	req.NoError(err)
	req.Equal(user, byEmail)

	byID, err := repository.GetUserByID(user.ID)
	req.NoError(err)
	req.Equal(user, byID)
}

func Test_Create_User_Email_Taken(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	repository := newUserRepository(t, db)

	_, err := repository.CreateUser("bob@example.com", "Bob", "hash")
	req.NoError(err)

	_, err = repository.CreateUser("BOB@example.com", "Bobby", "hash")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func Test_Get_Unknown_User(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	repository := newUserRepository(t, db)

	_, err := repository.GetUserByEmail("nobody@example.com")
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repository.GetUserByID(7)
	req.ErrorIs(err, errors.ErrUserNotFound)
}
