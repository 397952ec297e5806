package analytics

import "adjust-consumer/internal/logger"

// Vendor limits applied before a name leaves the adapter.
const (
	MaxEventNameLength    = 40
	MaxUserPropertyLength = 24
)

// Event is the untrimmed name of an analytics event
type Event string

// UserProperty is the untrimmed key of a user property
type UserProperty string

// TrimmedEvent is an event name that already satisfies a consumer's length limit.
// It can only be obtained through trimming.
type TrimmedEvent struct {
	name string
}

func (e TrimmedEvent) String() string {
	return e.name
}

// TrimmedUserProperty is a user property key that satisfies a consumer's length limit
type TrimmedUserProperty struct {
	key string
}

func (p TrimmedUserProperty) String() string {
	return p.key
}

// TrimEvent keeps the first maxLen characters of the event name
func TrimEvent(event Event, maxLen int) TrimmedEvent {
	return TrimmedEvent{name: trim(string(event), maxLen, "event")}
}

// TrimUserProperty keeps the first maxLen characters of the property key
func TrimUserProperty(property UserProperty, maxLen int) TrimmedUserProperty {
	return TrimmedUserProperty{key: trim(string(property), maxLen, "user property")}
}

// trim counts characters, not bytes, and cuts the original bytes at a rune
// boundary. Invalid UTF-8 bytes count as one character each and are kept as-is,
// so the result is always a prefix of s.
func trim(s string, maxLen int, kind string) string {
	if maxLen < 0 {
		maxLen = 0
	}

	n := 0
	for i := range s {
		if n == maxLen {
			trimmed := s[:i]
			logger.Log.WithField("kind", kind).Debugf("Trimmed %q to %q", s, trimmed)
			return trimmed
		}
		n++
	}
	return s
}
