// Package analytics forwards analytics events and user properties from the host app
// to pluggable vendor consumers.
//
// Names are trimmed per consumer before they are handed over; a consumer only ever
// sees TrimmedEvent and TrimmedUserProperty values.
package analytics

import (
	"context"
	"errors"
	"strings"

	"adjust-consumer/internal/settings"
)

// ErrInvalidInstallType is returned by Start when the consumer is not enabled for
// the current install type.
var ErrInvalidInstallType = errors.New("invalid install type")

// UserIDKey is the session callback parameter carrying the user identifier
const UserIDKey = "user_id"

// Consumer receives trimmed analytics calls and forwards them to one vendor
type Consumer interface {
	Name() string
	Start(ctx context.Context, installType InstallType, store settings.Store, host *Orchestrator) error
	Track(event TrimmedEvent, params map[string]ParameterValue)
	Set(property TrimmedUserProperty, value *string)
	TrimEvent(event Event) TrimmedEvent
	TrimUserProperty(property UserProperty) TrimmedUserProperty
}

// UserIDConsumer is a Consumer that also accepts a write-only user identifier.
// There is deliberately no getter.
type UserIDConsumer interface {
	Consumer
	SetUserID(userID *string)
}

// Environment is the vendor mode a consumer launches in
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentSandbox    Environment = "sandbox"
)

// ResolveEnvironment maps "production" in any case to production, anything else to sandbox
func ResolveEnvironment(s string) Environment {
	if strings.ToLower(s) == string(EnvironmentProduction) {
		return EnvironmentProduction
	}
	return EnvironmentSandbox
}

// Config is the immutable configuration of a consumer
type Config struct {
	Credential          string
	Environment         string
	EnabledInstallTypes []InstallType
	Redacted            bool
}

// LaunchConfig is what a vendor needs to bootstrap
type LaunchConfig struct {
	Credential  string
	Environment Environment
}

// VendorEvent is an event under construction on the vendor side
type VendorEvent interface {
	AddCallbackParameter(key, value string)
}

// Vendor is the binding to a vendor SDK. Implementations own transport, batching and
// persistence and must be safe for concurrent use.
type Vendor interface {
	Launch(ctx context.Context, cfg LaunchConfig, store settings.Store) error
	// NewEvent returns an error when the vendor refuses the token
	NewEvent(token string) (VendorEvent, error)
	TrackEvent(event VendorEvent)
	AddSessionCallbackParameter(key, value string)
	RemoveSessionCallbackParameter(key string)
}
