package analytics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"adjust-consumer/internal/logger"
	"adjust-consumer/internal/metrics"
	"adjust-consumer/internal/settings"
)

const redactedValue = "[REDACTED]"

// Adapter implements UserIDConsumer on top of a Vendor. It gates activation by
// install type, launches the vendor once and trims names before forwarding.
//
// Calls made before a successful Start are dropped.
type Adapter struct {
	name   string
	cfg    Config
	vendor Vendor

	mu      sync.Mutex
	started atomic.Bool
}

// NewAdapter creates an adapter named name for vendor
func NewAdapter(name string, cfg Config, vendor Vendor) *Adapter {
	types := make([]InstallType, len(cfg.EnabledInstallTypes))
	copy(types, cfg.EnabledInstallTypes)
	cfg.EnabledInstallTypes = types

	return &Adapter{
		name:   name,
		cfg:    cfg,
		vendor: vendor,
	}
}

// Name returns the consumer name
func (a *Adapter) Name() string {
	return a.name
}

// Vendor returns the underlying vendor binding
func (a *Adapter) Vendor() Vendor {
	return a.vendor
}

// Started reports whether the vendor has been launched
func (a *Adapter) Started() bool {
	return a.started.Load()
}

// Start launches the vendor for installType. It fails with ErrInvalidInstallType,
// without touching the vendor, when installType is not enabled. Starting an already
// started adapter is a no-op.
func (a *Adapter) Start(ctx context.Context, installType InstallType, store settings.Store, _ *Orchestrator) error {
	log := logger.WithConsumer(a.name).WithField("installType", installType)

	if !containsInstallType(a.cfg.EnabledInstallTypes, installType) {
		metrics.ConsumerStarts.WithLabelValues(a.name, "invalid_install_type").Inc()
		return fmt.Errorf("%w: %s is not enabled for %s", ErrInvalidInstallType, installType, a.name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started.Load() {
		log.Debug("Consumer already started")
		return nil
	}

	launch := LaunchConfig{
		Credential:  a.cfg.Credential,
		Environment: ResolveEnvironment(a.cfg.Environment),
	}

	if err := a.vendor.Launch(ctx, launch, store); err != nil {
		metrics.ConsumerStarts.WithLabelValues(a.name, "error").Inc()
		return fmt.Errorf("failed to launch %s: %w", a.name, err)
	}

	a.started.Store(true)
	metrics.ConsumerStarts.WithLabelValues(a.name, "success").Inc()
	log.WithField("environment", launch.Environment).Info("Consumer started")

	return nil
}

// TrimEvent trims the event name to MaxEventNameLength characters
func (a *Adapter) TrimEvent(event Event) TrimmedEvent {
	return TrimEvent(event, MaxEventNameLength)
}

// TrimUserProperty trims the key to MaxUserPropertyLength characters
func (a *Adapter) TrimUserProperty(property UserProperty) TrimmedUserProperty {
	return TrimUserProperty(property, MaxUserPropertyLength)
}

// Track builds a vendor event named after the trimmed event, attaches params as
// callback parameters and submits it. Events the vendor refuses are logged and dropped.
func (a *Adapter) Track(event TrimmedEvent, params map[string]ParameterValue) {
	if !a.ready("track") {
		return
	}

	vendorEvent, err := a.vendor.NewEvent(event.String())
	if err != nil {
		metrics.EventsDropped.WithLabelValues(a.name, "rejected").Inc()
		logger.WithConsumer(a.name).WithFields(logrus.Fields{
			"event": event.String(),
			"error": err.Error(),
		}).Warn("Vendor rejected event, dropping")
		return
	}

	for key, value := range params {
		vendorEvent.AddCallbackParameter(key, value.String())
	}

	a.vendor.TrackEvent(vendorEvent)
	metrics.EventsTracked.WithLabelValues(a.name).Inc()

	logger.WithConsumer(a.name).WithFields(logrus.Fields{
		"event":  event.String(),
		"params": len(params),
	}).Debug("Event tracked")
}

// Set stores value as a session callback parameter under the trimmed key; nil removes it
func (a *Adapter) Set(property TrimmedUserProperty, value *string) {
	a.setSessionParameter(property.String(), value)
}

// SetUserID writes the user identifier under UserIDKey; nil removes it
func (a *Adapter) SetUserID(userID *string) {
	a.setSessionParameter(UserIDKey, userID)
}

func (a *Adapter) setSessionParameter(key string, value *string) {
	if !a.ready("set") {
		return
	}

	log := logger.WithConsumer(a.name).WithField("key", key)

	if value == nil {
		a.vendor.RemoveSessionCallbackParameter(key)
		metrics.SessionParameterUpdates.WithLabelValues(a.name, "remove").Inc()
		log.Debug("Session parameter removed")
		return
	}

	a.vendor.AddSessionCallbackParameter(key, *value)
	metrics.SessionParameterUpdates.WithLabelValues(a.name, "add").Inc()
	log.WithField("value", a.redact(*value)).Debug("Session parameter set")
}

func (a *Adapter) ready(op string) bool {
	if a.started.Load() {
		return true
	}
	metrics.EventsDropped.WithLabelValues(a.name, "not_started").Inc()
	logger.WithConsumer(a.name).WithField("operation", op).Warn("Consumer not started, dropping call")
	return false
}

func (a *Adapter) redact(value string) string {
	if a.cfg.Redacted {
		return redactedValue
	}
	return value
}
