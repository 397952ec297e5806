// Package adjust exposes the Adjust consumers to integrators outside this module.
// It re-exports adjust-consumer/internal/adjust.
package adjust

import (
	iadjust "adjust-consumer/internal/adjust"
)

type (
	Consumer       = iadjust.Consumer
	LegacyConsumer = iadjust.LegacyConsumer
	Client         = iadjust.Client
	ClientOptions  = iadjust.ClientOptions
	ConsumerOption = iadjust.ConsumerOption
)

var (
	NewConsumer             = iadjust.NewConsumer
	NewLegacyConsumer       = iadjust.NewLegacyConsumer
	NewClient               = iadjust.NewClient
	WithEnabledInstallTypes = iadjust.WithEnabledInstallTypes
	WithRedacted            = iadjust.WithRedacted
	WithClient              = iadjust.WithClient
)
