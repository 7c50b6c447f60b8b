// Package runtime tracks live connections, ingests inbound messages and fans
// persisted events out to the right connections.
package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain/chat"
	"chat-relay/domain/event"
	"chat-relay/runtime/workers"
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
)

var _ contract.IFanout = (*Orchestrator)(nil)

// Orchestrator feeds fan-out lanes, each drained by a supervised FanoutWorker.
// Connections talk to the dispatcher by message passing only: a delivery is
// queued on the lane picked from the connection ID and the caller waits for its report.
type Orchestrator struct {
	mu         sync.Mutex
	log        *slog.Logger
	supervisor contract.ISupervisor
	dispatcher contract.IDispatcher
	lanes      []chan event.Delivery
	extra      []contract.Worker
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	dispatcher contract.IDispatcher, numWorkers, bufferSize int) *Orchestrator {
	numWorkers = max(numWorkers, 1)
	lanes := make([]chan event.Delivery, numWorkers)
	for i := range lanes {
		lanes[i] = make(chan event.Delivery, bufferSize)
	}
	return &Orchestrator{
		log:        log,
		supervisor: supervisor,
		dispatcher: dispatcher,
		lanes:      lanes,
	}
}

// Add registers side workers started together with the lanes.
func (o *Orchestrator) Add(w ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extra = append(o.extra, w...)
}

// Start registers one worker per lane plus the side workers, then blocks
// running the supervisor until ctx is cancelled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	for _, lane := range o.lanes {
		o.supervisor.Add(workers.NewFanoutWorker(o.log, lane, o.dispatcher))
	}
	o.supervisor.Add(o.extra...)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers", "lanes", len(o.lanes))
	o.supervisor.Run(ctx)
	return nil
}

func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}

func (o *Orchestrator) DispatchMessage(ctx context.Context, connID string, msg chat.Message) (event.DeliveryReport, error) {
	return o.deliver(ctx, connID, event.DeliverMessage, msg)
}

func (o *Orchestrator) DispatchReadNotification(ctx context.Context, connID string, msg chat.Message) (event.DeliveryReport, error) {
	return o.deliver(ctx, connID, event.DeliverReadNotification, msg)
}

func (o *Orchestrator) deliver(ctx context.Context, connID string,
	kind event.DeliveryKind, msg chat.Message) (event.DeliveryReport, error) {
	d := event.Delivery{Kind: kind, Message: msg, Reply: make(chan event.DeliveryResult, 1)}

	select {
	case o.lane(connID) <- d:
	case <-ctx.Done():
		return event.DeliveryReport{}, ctx.Err()
	}

	select {
	case res := <-d.Reply:
		return res.Report, res.Err
	case <-ctx.Done():
		return event.DeliveryReport{}, ctx.Err()
	}
}

func (o *Orchestrator) lane(connID string) chan event.Delivery {
	h := fnv.New32a()
	_, _ = h.Write([]byte(connID))
	return o.lanes[h.Sum32()%uint32(len(o.lanes))]
}
