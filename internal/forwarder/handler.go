package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"adjust-consumer/internal/analytics"
	"adjust-consumer/internal/logger"
	"adjust-consumer/internal/models"
)

// ErrDuplicate is returned by Handle for messages that were already forwarded
var ErrDuplicate = errors.New("duplicate message")

// Sink receives decoded analytics calls. *analytics.Orchestrator satisfies it.
type Sink interface {
	Track(event analytics.Event, params map[string]analytics.ParameterValue)
	Set(property analytics.UserProperty, value *string)
	SetUserID(userID *string)
	ActiveConsumers() []string
}

// Ledger deduplicates messages by ID
type Ledger interface {
	RecordDelivery(ctx context.Context, d models.Delivery) (bool, error)
}

// Handler decodes analytics messages and dispatches them to a Sink
type Handler struct {
	sink   Sink
	ledger Ledger
}

// NewHandler creates a handler. ledger may be nil, in which case every message is forwarded.
func NewHandler(sink Sink, ledger Ledger) *Handler {
	return &Handler{sink: sink, ledger: ledger}
}

// Decode parses and validates a raw message
func Decode(data []byte) (models.Message, error) {
	var msg models.Message

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&msg); err != nil {
		return msg, fmt.Errorf("failed to parse message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return msg, fmt.Errorf("invalid message: %w", err)
	}
	return msg, nil
}

// Handle forwards a single message. Errors other than ErrDuplicate mean the message
// is undeliverable.
func (h *Handler) Handle(ctx context.Context, data []byte) (models.Message, error) {
	msg, err := Decode(data)
	if err != nil {
		return msg, err
	}

	params, err := analytics.DecodeParams(msg.Params)
	if err != nil {
		return msg, err
	}

	log := logger.WithMessageID(msg.MessageID).WithField("kind", msg.Kind)

	if h.ledger != nil {
		consumers := h.sink.ActiveConsumers()
		sort.Strings(consumers)

		isNew, err := h.ledger.RecordDelivery(ctx, models.Delivery{
			MessageID:   msg.MessageID,
			Kind:        msg.Kind,
			Name:        msg.Name,
			Consumers:   strings.Join(consumers, ","),
			ForwardedAt: time.Now(),
		})
		if err != nil {
			return msg, fmt.Errorf("failed to record delivery: %w", err)
		}
		if !isNew {
			return msg, ErrDuplicate
		}
	}

	switch msg.Kind {
	case models.EventMessage:
		h.sink.Track(analytics.Event(msg.Name), params)
	case models.UserPropertyMessage:
		h.sink.Set(analytics.UserProperty(msg.Name), msg.Value)
	case models.UserIDMessage:
		h.sink.SetUserID(msg.Value)
	}

	log.WithFields(logrus.Fields{
		"name":   msg.Name,
		"params": len(params),
	}).Debug("Message forwarded")

	return msg, nil
}
