package adjust

import (
	"errors"
	"unicode/utf8"

	"adjust-consumer/internal/logger"
)

// Adjust event tokens are exactly six characters long.
const eventTokenLength = 6

var (
	ErrMissingEventToken   = errors.New("missing event token")
	ErrMalformedEventToken = errors.New("malformed event token")
)

// Event is a single Adjust event waiting to be tracked
type Event struct {
	token          string
	callbackParams map[string]string
}

// NewEvent validates token and returns an empty event for it
func NewEvent(token string) (*Event, error) {
	if token == "" {
		return nil, ErrMissingEventToken
	}
	if utf8.RuneCountInString(token) != eventTokenLength {
		return nil, ErrMalformedEventToken
	}

	return &Event{
		token:          token,
		callbackParams: make(map[string]string),
	}, nil
}

// Token returns the event token
func (e *Event) Token() string {
	return e.token
}

// AddCallbackParameter attaches key/value to the event. Empty keys or values are ignored
// and an existing key is overwritten.
func (e *Event) AddCallbackParameter(key, value string) {
	if key == "" || value == "" {
		logger.Log.WithField("eventToken", e.token).Warn("Callback parameter key or value is missing")
		return
	}
	if _, exists := e.callbackParams[key]; exists {
		logger.Log.WithField("eventToken", e.token).Warnf("Key %s was overwritten", key)
	}
	e.callbackParams[key] = value
}

// CallbackParameters returns a copy of the attached parameters
func (e *Event) CallbackParameters() map[string]string {
	out := make(map[string]string, len(e.callbackParams))
	for k, v := range e.callbackParams {
		out[k] = v
	}
	return out
}
