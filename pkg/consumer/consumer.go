// Package consumer exposes the analytics consumer abstraction to integrators
// outside this module. It re-exports adjust-consumer/internal/analytics.
package consumer

import (
	ianalytics "adjust-consumer/internal/analytics"
)

type (
	Consumer            = ianalytics.Consumer
	UserIDConsumer      = ianalytics.UserIDConsumer
	Vendor              = ianalytics.Vendor
	VendorEvent         = ianalytics.VendorEvent
	Config              = ianalytics.Config
	LaunchConfig        = ianalytics.LaunchConfig
	Adapter             = ianalytics.Adapter
	Orchestrator        = ianalytics.Orchestrator
	InstallType         = ianalytics.InstallType
	Event               = ianalytics.Event
	UserProperty        = ianalytics.UserProperty
	TrimmedEvent        = ianalytics.TrimmedEvent
	TrimmedUserProperty = ianalytics.TrimmedUserProperty
	ParameterValue      = ianalytics.ParameterValue
)

var (
	NewAdapter            = ianalytics.NewAdapter
	NewOrchestrator       = ianalytics.NewOrchestrator
	ErrInvalidInstallType = ianalytics.ErrInvalidInstallType
)
