package service

import (
	"encoding/json"
	"log"
	"time"
)

// Notifier receives workflow event payloads for fan-out to subscribers
// (websocket hub, in-app notifications). Delivery is best-effort: the action
// ledger row is the durable contract, the notification is a convenience.
type Notifier interface {
	Publish(message []byte)
}

// workflowEvent is the JSON envelope broadcast for every notable transition.
type workflowEvent struct {
	Event      string    `json:"event"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// notify marshals and publishes an event; a nil notifier is a no-op.
func notify(n Notifier, event string, payload any) {
	if n == nil {
		return
	}
	data, err := json.Marshal(workflowEvent{Event: event, Payload: payload, OccurredAt: time.Now()})
	if err != nil {
		log.Printf("WARNING: failed to marshal %s event: %v", event, err)
		return
	}
	n.Publish(data)
}
