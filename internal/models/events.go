package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageKind identifies what an analytics message asks the consumers to do
type MessageKind string

const (
	EventMessage        MessageKind = "event"
	UserPropertyMessage MessageKind = "user_property"
	UserIDMessage       MessageKind = "user_id"
)

// Message is the JSON envelope published on the analytics topic
type Message struct {
	MessageID string                     `json:"messageId"`
	Kind      MessageKind                `json:"kind"`
	Name      string                     `json:"name,omitempty"`
	Params    map[string]json.RawMessage `json:"params,omitempty"`
	Value     *string                    `json:"value"`
	Timestamp time.Time                  `json:"timestamp"`
}

// GetKey returns the partition key for the message
func (m Message) GetKey() string {
	if m.Kind == EventMessage {
		return m.Name
	}
	return string(m.Kind)
}

// Validate checks the fields each kind requires
func (m Message) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("missing messageId")
	}

	switch m.Kind {
	case EventMessage:
		if m.Name == "" {
			return fmt.Errorf("event message without name")
		}
	case UserPropertyMessage:
		if m.Name == "" {
			return fmt.Errorf("user property message without name")
		}
		if len(m.Params) > 0 {
			return fmt.Errorf("user property message cannot carry params")
		}
	case UserIDMessage:
		if len(m.Params) > 0 {
			return fmt.Errorf("user id message cannot carry params")
		}
	default:
		return fmt.Errorf("unknown message kind: %q", m.Kind)
	}
	return nil
}

// RetryCountHeader is the Kafka header carrying how many times a dead-lettered
// message has been replayed onto the analytics topic
const RetryCountHeader = "x-retry-count"

// DLQEntry represents an entry in the dead letter queue. RetryCount counts the
// replays already attempted for the message.
type DLQEntry struct {
	MessageID    string    `json:"messageId"`
	OriginalData string    `json:"originalData"`
	Error        string    `json:"error"`
	Timestamp    time.Time `json:"timestamp"`
	RetryCount   int       `json:"retryCount"`
}

// Delivery records that a message was handed to the analytics consumers
type Delivery struct {
	MessageID   string      `json:"messageId"`
	Kind        MessageKind `json:"kind"`
	Name        string      `json:"name,omitempty"`
	Consumers   string      `json:"consumers"`
	ForwardedAt time.Time   `json:"forwardedAt"`
}
