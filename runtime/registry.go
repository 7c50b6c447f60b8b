package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"sync"
)

const shardCount = 32

var _ contract.IRegistry = (*Registry)(nil)

// ConnectionSet holds the live connections of one user, keyed by connection ID.
type ConnectionSet map[string]contract.Connection

type shard struct {
	mu    sync.RWMutex
	users map[chat.UserID]ConnectionSet
}

// Registry maps a user to the set of its live connections.
// Users are spread over shards so that register, unregister and lookup
// only contend with operations on users of the same shard.
type Registry struct {
	shards [shardCount]*shard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i] = &shard{users: make(map[chat.UserID]ConnectionSet)}
	}
	return r
}

func (r *Registry) shardFor(userID chat.UserID) *shard {
	return r.shards[uint64(userID)%shardCount]
}

// Register adds conn to the user's set, creating the set if absent.
// Registering the same connection twice is a no-op.
func (r *Registry) Register(userID chat.UserID, conn contract.Connection) {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[userID]
	if !ok {
		set = make(ConnectionSet)
		s.users[userID] = set
	}
	set[conn.ID()] = conn
}

// Unregister removes conn from the user's set and drops the set once empty.
// It reports whether the connection was present; absent entries are not an error
// since disconnects and prunes race each other.
func (r *Registry) Unregister(userID chat.UserID, conn contract.Connection) bool {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.users[userID]
	if !ok {
		return false
	}
	if _, ok = set[conn.ID()]; !ok {
		return false
	}
	delete(set, conn.ID())
	if len(set) == 0 {
		delete(s.users, userID)
	}
	return true
}

// ConnectionsFor returns a snapshot of the user's live connections.
// An offline user gets an empty slice.
func (r *Registry) ConnectionsFor(userID chat.UserID) []contract.Connection {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.users[userID]
	conns := make([]contract.Connection, 0, len(set))
	for _, conn := range set {
		conns = append(conns, conn)
	}
	return conns
}

func (r *Registry) OnlineUsers() int {
	total := 0
	for _, s := range r.shards {
		s.mu.RLock()
		total += len(s.users)
		s.mu.RUnlock()
	}
	return total
}

func (r *Registry) ConnectionCount() int {
	total := 0
	for _, s := range r.shards {
		s.mu.RLock()
		for _, set := range s.users {
			total += len(set)
		}
		s.mu.RUnlock()
	}
	return total
}

// CloseAll closes every live connection, e.g. on server shutdown.
// Connections unregister themselves once their reader stops.
func (r *Registry) CloseAll(code int, reason string) int {
	var all []contract.Connection
	for _, s := range r.shards {
		s.mu.RLock()
		for _, set := range s.users {
			for _, conn := range set {
				all = append(all, conn)
			}
		}
		s.mu.RUnlock()
	}
	for _, conn := range all {
		_ = conn.Close(code, reason)
	}
	return len(all)
}
