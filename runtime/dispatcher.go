package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/repositories"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

var _ contract.IDispatcher = (*Dispatcher)(nil)

// Dispatcher pushes persisted events to the live connections of their recipients.
// Delivery is best effort: a connection that cannot take a frame within
// sinkTimeout is pruned and the loop moves on to the next one.
type Dispatcher struct {
	log         *slog.Logger
	registry    contract.IRegistry
	chats       repositories.IChatRepository
	sinkTimeout time.Duration
}

func NewDispatcher(log *slog.Logger, registry contract.IRegistry,
	chats repositories.IChatRepository, sinkTimeout time.Duration) *Dispatcher {
	return &Dispatcher{log: log, registry: registry, chats: chats, sinkTimeout: sinkTimeout}
}

// DispatchMessage delivers msg to every member of its chat, sender included,
// so the sender's other devices see it too.
func (d *Dispatcher) DispatchMessage(ctx context.Context, msg chat.Message) (event.DeliveryReport, error) {
	members, err := d.chats.ChatMembers(msg.ChatID)
	if err != nil {
		return event.DeliveryReport{}, fmt.Errorf("resolving members of chat %d: %w", msg.ChatID, err)
	}
	frame, err := json.Marshal(event.NewMessageSent(msg))
	if err != nil {
		return event.DeliveryReport{}, err
	}
	return d.fanout(ctx, members, frame), nil
}

// DispatchReadNotification tells the original sender that msg has been read.
func (d *Dispatcher) DispatchReadNotification(ctx context.Context, msg chat.Message) (event.DeliveryReport, error) {
	frame, err := json.Marshal(event.NewMessageRead(msg))
	if err != nil {
		return event.DeliveryReport{}, err
	}
	return d.fanout(ctx, []chat.UserID{msg.SenderID}, frame), nil
}

// fanout sends the same serialized frame to every live connection of every recipient.
func (d *Dispatcher) fanout(ctx context.Context, recipients []chat.UserID, frame []byte) event.DeliveryReport {
	report := event.DeliveryReport{Recipients: len(recipients)}
	for _, userID := range recipients {
		conns := d.registry.ConnectionsFor(userID)
		if len(conns) == 0 {
			report.Offline++
			continue
		}
		for _, conn := range conns {
			if err := d.send(ctx, conn, frame); err != nil {
				d.prune(userID, conn, err)
				report.Pruned++
				continue
			}
			report.Delivered++
		}
	}
	return report
}

func (d *Dispatcher) send(ctx context.Context, conn contract.Connection, frame []byte) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.sinkTimeout)
	defer cancel()
	return conn.Send(sendCtx, frame)
}

func (d *Dispatcher) prune(userID chat.UserID, conn contract.Connection, cause error) {
	d.log.Debug("Pruning connection", "user_id", userID, "connection_id", conn.ID(), "error", cause)
	d.registry.Unregister(userID, conn)
	_ = conn.Close(contract.CloseTryAgainLater, "connection too slow")
}
