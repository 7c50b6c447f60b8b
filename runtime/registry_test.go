package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubConnection struct {
	id     string
	userID chat.UserID
}

func (c stubConnection) ID() string                             { return c.id }
func (c stubConnection) UserID() chat.UserID                    { return c.userID }
func (c stubConnection) Send(_ context.Context, _ []byte) error { return nil }
func (c stubConnection) Close(_ int, _ string) error            { return nil }
func (c stubConnection) Done() <-chan struct{}                  { return nil }

func TestRegistry_Offline_User_Has_No_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	conns := registry.ConnectionsFor(42)

	req.NotNil(conns)
	req.Empty(conns)
}

func TestRegistry_Register_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := stubConnection{id: "c1", userID: 1}

	// When the same connection is registered twice
	registry.Register(1, conn)
	registry.Register(1, conn)

	// Then it is present once
	req.Len(registry.ConnectionsFor(1), 1)
	req.Equal(1, registry.ConnectionCount())
}

func TestRegistry_Multiple_Devices(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	phone := stubConnection{id: "phone", userID: 1}
	laptop := stubConnection{id: "laptop", userID: 1}

	registry.Register(1, phone)
	registry.Register(1, laptop)
	registry.Register(2, stubConnection{id: "other", userID: 2})

	req.ElementsMatch([]contract.Connection{phone, laptop}, registry.ConnectionsFor(1))
	req.Equal(2, registry.OnlineUsers())
	req.Equal(3, registry.ConnectionCount())
}

func TestRegistry_Register_Then_Unregister_Restores_State(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	existing := stubConnection{id: "existing", userID: 1}
	registry.Register(1, existing)
	before := registry.ConnectionsFor(1)

	// When a connection comes and goes
	conn := stubConnection{id: "c1", userID: 1}
	registry.Register(1, conn)
	req.True(registry.Unregister(1, conn))

	// Then the user's set is back to what it was
	req.ElementsMatch(before, registry.ConnectionsFor(1))
}

func TestRegistry_Unregister_Last_Connection_Drops_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := stubConnection{id: "c1", userID: 7}
	registry.Register(7, conn)

	req.True(registry.Unregister(7, conn))

	req.Equal(0, registry.OnlineUsers())
	shard := registry.shardFor(7)
	_, ok := shard.users[7]
	req.False(ok, "empty connection sets must not linger")
}

func TestRegistry_Unregister_Absent_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register(1, stubConnection{id: "c1", userID: 1})

	req.False(registry.Unregister(2, stubConnection{id: "c1", userID: 2}))
	req.False(registry.Unregister(1, stubConnection{id: "unknown", userID: 1}))
	req.Len(registry.ConnectionsFor(1), 1)
}

func TestRegistry_Concurrent_Register_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	const users, perUser = 50, 20

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		for c := 0; c < perUser; c++ {
			wg.Add(1)
			go func(userID chat.UserID, id string) {
				defer wg.Done()
				conn := stubConnection{id: id, userID: userID}
				registry.Register(userID, conn)
				_ = registry.ConnectionsFor(userID)
				if c%2 == 0 {
					registry.Unregister(userID, conn)
				}
			}(chat.UserID(u), fmt.Sprintf("%d-%d", u, c))
		}
	}
	wg.Wait()

	// Then no update was lost
	req.Equal(users*perUser/2, registry.ConnectionCount())
	req.Equal(users, registry.OnlineUsers())
}
