package chat

// Message is immutable once persisted, except for IsRead
// which flips from false to true exactly once.
// Timestamp is in seconds since epoch; ID is assigned from a monotonic
// sequence and breaks ties between messages of the same second.
type Message struct {
	ID              MessageID
	ChatID          ChatID
	SenderID        UserID
	Text            string
	Timestamp       int64
	IsRead          bool
	ClientMessageID string
}

// Before reports whether m is ordered before other in history.
func (m Message) Before(other Message) bool {
	if m.Timestamp != other.Timestamp {
		return m.Timestamp < other.Timestamp
	}
	return m.ID < other.ID
}
