package event

import "chat-relay/domain/chat"

// DeliveryReport summarizes one fan-out.
// Offline counts recipients without any live connection; it is not a failure.
type DeliveryReport struct {
	Recipients int `json:"recipients"`
	Delivered  int `json:"delivered"`
	Pruned     int `json:"pruned"`
	Offline    int `json:"offline"`
}

func (r DeliveryReport) Merge(other DeliveryReport) DeliveryReport {
	return DeliveryReport{
		Recipients: r.Recipients + other.Recipients,
		Delivered:  r.Delivered + other.Delivered,
		Pruned:     r.Pruned + other.Pruned,
		Offline:    r.Offline + other.Offline,
	}
}

type DeliveryKind int

const (
	DeliverMessage DeliveryKind = iota
	DeliverReadNotification
)

func (k DeliveryKind) String() string {
	switch k {
	case DeliverMessage:
		return "message"
	case DeliverReadNotification:
		return "read_notification"
	default:
		return "unknown"
	}
}

// Delivery is a fan-out request travelling through a lane.
// Reply must be buffered so the worker never blocks on a gone caller.
type Delivery struct {
	Kind    DeliveryKind
	Message chat.Message
	Reply   chan DeliveryResult
}

type DeliveryResult struct {
	Report DeliveryReport
	Err    error
}
