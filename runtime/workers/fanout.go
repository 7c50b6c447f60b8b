package workers

import (
	"chat-relay/contract"
	"chat-relay/domain/event"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
)

var _ contract.Worker = (*FanoutWorker)(nil)

// FanoutWorker drains one delivery lane.
// Every delivery gets exactly one reply, even when dispatching panics.
type FanoutWorker struct {
	log        *slog.Logger
	deliveries <-chan event.Delivery
	dispatcher contract.IDispatcher
}

func NewFanoutWorker(log *slog.Logger, deliveries <-chan event.Delivery, dispatcher contract.IDispatcher) *FanoutWorker {
	return &FanoutWorker{log: log, deliveries: deliveries, dispatcher: dispatcher}
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout lane")
			return nil
		case d, ok := <-w.deliveries:
			if !ok {
				w.log.Debug("Delivery lane closed")
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *FanoutWorker) handle(ctx context.Context, d event.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			reply(d, event.DeliveryResult{Err: fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)})
			// Let the supervisor restart the lane
			panic(r)
		}
	}()

	var result event.DeliveryResult
	switch d.Kind {
	case event.DeliverMessage:
		result.Report, result.Err = w.dispatcher.DispatchMessage(ctx, d.Message)
	case event.DeliverReadNotification:
		result.Report, result.Err = w.dispatcher.DispatchReadNotification(ctx, d.Message)
	default:
		result.Err = fmt.Errorf("unknown delivery kind %d", d.Kind)
	}
	w.log.Debug("Delivery done", "kind", d.Kind, "message_id", d.Message.ID,
		"delivered", result.Report.Delivered, "pruned", result.Report.Pruned, "offline", result.Report.Offline)
	reply(d, result)
}

func reply(d event.Delivery, result event.DeliveryResult) {
	select {
	case d.Reply <- result:
	default:
	}
}
