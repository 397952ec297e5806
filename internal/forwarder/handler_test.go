package forwarder_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjust-consumer/internal/analytics"
	"adjust-consumer/internal/forwarder"
	"adjust-consumer/internal/models"
)

type trackCall struct {
	event  analytics.Event
	params map[string]analytics.ParameterValue
}

type fakeSink struct {
	tracks  []trackCall
	sets    map[analytics.UserProperty]*string
	userIDs []*string
}

func newFakeSink() *fakeSink {
	return &fakeSink{sets: make(map[analytics.UserProperty]*string)}
}

func (s *fakeSink) Track(event analytics.Event, params map[string]analytics.ParameterValue) {
	s.tracks = append(s.tracks, trackCall{event: event, params: params})
}

func (s *fakeSink) Set(property analytics.UserProperty, value *string) {
	s.sets[property] = value
}

func (s *fakeSink) SetUserID(userID *string) {
	s.userIDs = append(s.userIDs, userID)
}

func (s *fakeSink) ActiveConsumers() []string {
	return []string{"adjust"}
}

type fakeLedger struct {
	mu   sync.Mutex
	seen map[string]models.Delivery
	err  error
}

func (l *fakeLedger) RecordDelivery(_ context.Context, d models.Delivery) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if _, ok := l.seen[d.MessageID]; ok {
		return false, nil
	}
	l.seen[d.MessageID] = d
	return true, nil
}

func TestHandle_Event(t *testing.T) {
	sink := newFakeSink()
	h := forwarder.NewHandler(sink, nil)

	msg, err := h.Handle(context.Background(), []byte(`{
		"messageId": "m-1",
		"kind": "event",
		"name": "abc123",
		"params": {"discount": 0.25, "promo": true, "count": 2, "code": "SPRING"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, "m-1", msg.MessageID)

	require.Len(t, sink.tracks, 1)
	assert.Equal(t, analytics.Event("abc123"), sink.tracks[0].event)
	assert.Equal(t, map[string]analytics.ParameterValue{
		"discount": analytics.Float(0.25),
		"promo":    analytics.Bool(true),
		"count":    analytics.Int(2),
		"code":     analytics.String("SPRING"),
	}, sink.tracks[0].params)
}

func TestHandle_UserPropertyTriState(t *testing.T) {
	sink := newFakeSink()
	h := forwarder.NewHandler(sink, nil)

	_, err := h.Handle(context.Background(), []byte(`{"messageId":"m-1","kind":"user_property","name":"plan","value":"pro"}`))
	require.NoError(t, err)
	require.NotNil(t, sink.sets["plan"])
	assert.Equal(t, "pro", *sink.sets["plan"])

	_, err = h.Handle(context.Background(), []byte(`{"messageId":"m-2","kind":"user_property","name":"plan","value":null}`))
	require.NoError(t, err)
	v, ok := sink.sets["plan"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestHandle_UserID(t *testing.T) {
	sink := newFakeSink()
	h := forwarder.NewHandler(sink, nil)

	_, err := h.Handle(context.Background(), []byte(`{"messageId":"m-1","kind":"user_id","value":"abc123"}`))
	require.NoError(t, err)
	_, err = h.Handle(context.Background(), []byte(`{"messageId":"m-2","kind":"user_id"}`))
	require.NoError(t, err)

	require.Len(t, sink.userIDs, 2)
	assert.Equal(t, "abc123", *sink.userIDs[0])
	assert.Nil(t, sink.userIDs[1])
}

func TestHandle_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"messageId": "m-1", "kind": "event"`},
		{"unknown kind", `{"messageId": "m-1", "kind": "screen_view", "name": "home"}`},
		{"missing id", `{"kind": "event", "name": "abc123"}`},
		{"event without name", `{"messageId": "m-1", "kind": "event"}`},
		{"nested param", `{"messageId": "m-1", "kind": "event", "name": "abc123", "params": {"cart": {"items": 2}}}`},
		{"property with params", `{"messageId": "m-1", "kind": "user_property", "name": "plan", "params": {"a": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newFakeSink()
			h := forwarder.NewHandler(sink, nil)

			_, err := h.Handle(context.Background(), []byte(tt.data))

			require.Error(t, err)
			assert.NotErrorIs(t, err, forwarder.ErrDuplicate)
			assert.Empty(t, sink.tracks)
		})
	}
}

func TestHandle_DuplicatesForwardedOnce(t *testing.T) {
	sink := newFakeSink()
	ledger := &fakeLedger{seen: make(map[string]models.Delivery)}
	h := forwarder.NewHandler(sink, ledger)

	data := []byte(`{"messageId":"m-1","kind":"event","name":"abc123"}`)

	_, err := h.Handle(context.Background(), data)
	require.NoError(t, err)
	_, err = h.Handle(context.Background(), data)
	assert.ErrorIs(t, err, forwarder.ErrDuplicate)

	assert.Len(t, sink.tracks, 1)
	assert.Equal(t, "adjust", ledger.seen["m-1"].Consumers)
	assert.Equal(t, models.EventMessage, ledger.seen["m-1"].Kind)
}

func TestHandle_LedgerFailure(t *testing.T) {
	sink := newFakeSink()
	h := forwarder.NewHandler(sink, &fakeLedger{err: errors.New("db down")})

	_, err := h.Handle(context.Background(), []byte(`{"messageId":"m-1","kind":"event","name":"abc123"}`))

	require.Error(t, err)
	assert.Empty(t, sink.tracks)
}
