package analytics

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"adjust-consumer/internal/logger"
	"adjust-consumer/internal/settings"
)

// Orchestrator owns the host's consumers. It starts them for the current install
// type and fans every call out to the ones that started, trimming per consumer.
type Orchestrator struct {
	consumers []Consumer
	store     settings.Store

	mu     sync.RWMutex
	active []Consumer
}

// NewOrchestrator creates an orchestrator over consumers
func NewOrchestrator(store settings.Store, consumers ...Consumer) *Orchestrator {
	return &Orchestrator{
		consumers: consumers,
		store:     store,
	}
}

// Start starts every consumer for installType. Consumers not enabled for the
// install type are skipped; any other failure is returned after all consumers
// have been tried. Consumers started by an earlier call stay active.
func (o *Orchestrator) Start(ctx context.Context, installType InstallType) error {
	var errs []error
	var active []Consumer

	previous := make(map[string]bool)
	for _, c := range o.snapshot() {
		previous[c.Name()] = true
	}

	for _, c := range o.consumers {
		err := c.Start(ctx, installType, o.store, o)
		switch {
		case err == nil:
			active = append(active, c)
		case previous[c.Name()]:
			// a launched consumer never goes back to unstarted
			active = append(active, c)
			logger.WithConsumer(c.Name()).WithField("installType", installType).
				Warnf("Consumer already started, ignoring restart: %v", err)
		case errors.Is(err, ErrInvalidInstallType):
			logger.WithConsumer(c.Name()).WithField("installType", installType).
				Info("Consumer disabled for install type")
		default:
			logger.WithConsumer(c.Name()).Errorf("Failed to start consumer: %v", err)
			errs = append(errs, err)
		}
	}

	o.mu.Lock()
	o.active = active
	o.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"installType": installType,
		"active":      len(active),
		"configured":  len(o.consumers),
	}).Info("Analytics consumers started")

	return errors.Join(errs...)
}

// ActiveConsumers returns the names of the consumers that started
func (o *Orchestrator) ActiveConsumers() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	names := make([]string, 0, len(o.active))
	for _, c := range o.active {
		names = append(names, c.Name())
	}
	return names
}

// Track forwards event to every active consumer
func (o *Orchestrator) Track(event Event, params map[string]ParameterValue) {
	for _, c := range o.snapshot() {
		c.Track(c.TrimEvent(event), params)
	}
}

// Set forwards a user property update; a nil value unsets it
func (o *Orchestrator) Set(property UserProperty, value *string) {
	for _, c := range o.snapshot() {
		c.Set(c.TrimUserProperty(property), value)
	}
}

// SetUserID forwards the user identifier to consumers that accept one
func (o *Orchestrator) SetUserID(userID *string) {
	for _, c := range o.snapshot() {
		if uc, ok := c.(UserIDConsumer); ok {
			uc.SetUserID(userID)
		}
	}
}

func (o *Orchestrator) snapshot() []Consumer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.active
}
