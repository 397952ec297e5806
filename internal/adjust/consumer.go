// Package adjust binds the analytics consumer adapter to Adjust.
package adjust

import (
	"fmt"

	"adjust-consumer/internal/analytics"
	"adjust-consumer/internal/config"
)

const (
	ConsumerName       = "adjust"
	LegacyConsumerName = "adjust-legacy"
)

// Consumer sends analytics events and user properties to Adjust
type Consumer struct {
	*analytics.Adapter
	client *Client
}

// ConsumerOption customizes NewConsumer
type ConsumerOption func(*consumerOptions)

type consumerOptions struct {
	installTypes []analytics.InstallType
	redacted     bool
	client       *Client
}

// WithEnabledInstallTypes restricts the install types the consumer starts for
func WithEnabledInstallTypes(types ...analytics.InstallType) ConsumerOption {
	return func(o *consumerOptions) {
		o.installTypes = types
	}
}

// WithRedacted controls whether user property values are hidden in logs
func WithRedacted(redacted bool) ConsumerOption {
	return func(o *consumerOptions) {
		o.redacted = redacted
	}
}

// WithClient uses an existing Adjust client
func WithClient(client *Client) ConsumerOption {
	return func(o *consumerOptions) {
		o.client = client
	}
}

// NewConsumer creates an Adjust consumer for sdkKey. It is enabled for every
// install type and redacted unless told otherwise.
func NewConsumer(sdkKey, environment string, opts ...ConsumerOption) *Consumer {
	o := consumerOptions{
		installTypes: analytics.AllInstallTypes(),
		redacted:     true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = NewClient(ClientOptions{})
	}

	cfg := analytics.Config{
		Credential:          sdkKey,
		Environment:         environment,
		EnabledInstallTypes: o.installTypes,
		Redacted:            o.redacted,
	}

	return &Consumer{
		Adapter: analytics.NewAdapter(ConsumerName, cfg, o.client),
		client:  o.client,
	}
}

// NewConsumerFromConfig builds the client and consumer from environment configuration
func NewConsumerFromConfig(cfg *config.AdjustConfig) (*Consumer, error) {
	installTypes, err := analytics.ParseInstallTypes(cfg.EnabledInstallTypes)
	if err != nil {
		return nil, fmt.Errorf("invalid enabled install types: %w", err)
	}

	client := NewClient(ClientOptions{
		Endpoint:       cfg.Endpoint,
		EventTokens:    cfg.EventTokens,
		RateLimit:      cfg.RateLimit,
		QueueSize:      cfg.QueueSize,
		RequestTimeout: cfg.RequestTimeout,
	})

	return NewConsumer(cfg.SDKKey, cfg.Environment,
		WithEnabledInstallTypes(installTypes...),
		WithRedacted(cfg.Redacted),
		WithClient(client),
	), nil
}

// Client returns the underlying Adjust client
func (c *Consumer) Client() *Client {
	return c.client
}

// LegacyConsumer is the app-token based consumer kept for integrators of the
// first consumer interface. It shares all behavior with Consumer.
type LegacyConsumer struct {
	*analytics.Adapter
	client *Client
}

// NewLegacyConsumer creates a consumer for appToken enabled only for enabledInstallTypes.
// A nil client gets a default one.
func NewLegacyConsumer(appToken, environment string, enabledInstallTypes []analytics.InstallType, client *Client) *LegacyConsumer {
	if client == nil {
		client = NewClient(ClientOptions{})
	}

	cfg := analytics.Config{
		Credential:          appToken,
		Environment:         environment,
		EnabledInstallTypes: enabledInstallTypes,
	}

	return &LegacyConsumer{
		Adapter: analytics.NewAdapter(LegacyConsumerName, cfg, client),
		client:  client,
	}
}

// Client returns the underlying Adjust client
func (c *LegacyConsumer) Client() *Client {
	return c.client
}

var (
	_ analytics.UserIDConsumer = (*Consumer)(nil)
	_ analytics.UserIDConsumer = (*LegacyConsumer)(nil)
	_ analytics.Vendor         = (*Client)(nil)
)
