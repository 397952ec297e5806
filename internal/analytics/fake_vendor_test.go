package analytics_test

import (
	"context"
	"errors"
	"sync"

	"adjust-consumer/internal/analytics"
	"adjust-consumer/internal/settings"
)

var errRejected = errors.New("rejected token")

type fakeEvent struct {
	token  string
	params map[string]string
}

func (e *fakeEvent) AddCallbackParameter(key, value string) {
	e.params[key] = value
}

// fakeVendor records every call made by the adapter
type fakeVendor struct {
	mu        sync.Mutex
	launches  []analytics.LaunchConfig
	launchErr error
	rejectAll bool
	tracked   []*fakeEvent
	session   map[string]string
}

func newFakeVendor() *fakeVendor {
	return &fakeVendor{session: make(map[string]string)}
}

func (v *fakeVendor) Launch(_ context.Context, cfg analytics.LaunchConfig, _ settings.Store) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.launchErr != nil {
		return v.launchErr
	}
	v.launches = append(v.launches, cfg)
	return nil
}

func (v *fakeVendor) NewEvent(token string) (analytics.VendorEvent, error) {
	if v.rejectAll || token == "" {
		return nil, errRejected
	}
	return &fakeEvent{token: token, params: make(map[string]string)}, nil
}

func (v *fakeVendor) TrackEvent(event analytics.VendorEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tracked = append(v.tracked, event.(*fakeEvent))
}

func (v *fakeVendor) AddSessionCallbackParameter(key, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.session[key] = value
}

func (v *fakeVendor) RemoveSessionCallbackParameter(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.session, key)
}

func (v *fakeVendor) sessionValue(key string) (string, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	val, ok := v.session[key]
	return val, ok
}

func (v *fakeVendor) launchCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.launches)
}

func (v *fakeVendor) trackedEvents() []*fakeEvent {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*fakeEvent(nil), v.tracked...)
}

func strPtr(s string) *string {
	return &s
}
