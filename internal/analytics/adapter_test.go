package analytics_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjust-consumer/internal/analytics"
	"adjust-consumer/internal/settings"
)

func newAdapter(t *testing.T, env string, types ...analytics.InstallType) (*analytics.Adapter, *fakeVendor) {
	t.Helper()
	vendor := newFakeVendor()
	adapter := analytics.NewAdapter("fake", analytics.Config{
		Credential:          "sdk-key",
		Environment:         env,
		EnabledInstallTypes: types,
		Redacted:            true,
	}, vendor)
	return adapter, vendor
}

func startAdapter(t *testing.T, adapter *analytics.Adapter, it analytics.InstallType) {
	t.Helper()
	require.NoError(t, adapter.Start(context.Background(), it, settings.NewMemoryStore(), nil))
}

func TestAdapterStart_InstallTypeGate(t *testing.T) {
	for _, it := range analytics.AllInstallTypes() {
		if it == analytics.InstallTypeOrganic {
			continue
		}
		adapter, vendor := newAdapter(t, "production", analytics.InstallTypeOrganic)

		err := adapter.Start(context.Background(), it, settings.NewMemoryStore(), nil)

		assert.ErrorIs(t, err, analytics.ErrInvalidInstallType, "install type %s", it)
		assert.Equal(t, 0, vendor.launchCount())
		assert.False(t, adapter.Started())
	}
}

func TestAdapterStart_MixedCaseProductionScenario(t *testing.T) {
	adapter, vendor := newAdapter(t, "Production", analytics.InstallTypeOrganic)

	err := adapter.Start(context.Background(), analytics.InstallTypePaid, nil, nil)
	require.ErrorIs(t, err, analytics.ErrInvalidInstallType)
	assert.Equal(t, 0, vendor.launchCount())

	startAdapter(t, adapter, analytics.InstallTypeOrganic)

	require.Equal(t, 1, vendor.launchCount())
	assert.Equal(t, analytics.LaunchConfig{
		Credential:  "sdk-key",
		Environment: analytics.EnvironmentProduction,
	}, vendor.launches[0])
	assert.True(t, adapter.Started())
}

func TestAdapterStart_NonProductionResolvesToSandbox(t *testing.T) {
	for _, env := range []string{"sandbox", "Sandbox", "staging", ""} {
		adapter, vendor := newAdapter(t, env, analytics.AllInstallTypes()...)
		startAdapter(t, adapter, analytics.InstallTypeBeta)

		require.Equal(t, 1, vendor.launchCount())
		assert.Equal(t, analytics.EnvironmentSandbox, vendor.launches[0].Environment, env)
	}
}

func TestAdapterStart_LaunchesOnce(t *testing.T) {
	adapter, vendor := newAdapter(t, "sandbox", analytics.AllInstallTypes()...)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, adapter.Start(context.Background(), analytics.InstallTypePaid, nil, nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, vendor.launchCount())
}

func TestAdapterStart_LaunchError(t *testing.T) {
	adapter, vendor := newAdapter(t, "sandbox", analytics.AllInstallTypes()...)
	vendor.launchErr = errors.New("boom")

	err := adapter.Start(context.Background(), analytics.InstallTypePaid, nil, nil)

	require.Error(t, err)
	assert.NotErrorIs(t, err, analytics.ErrInvalidInstallType)
	assert.False(t, adapter.Started())
}

func TestAdapterTrack_CallbackParameters(t *testing.T) {
	adapter, vendor := newAdapter(t, "sandbox", analytics.AllInstallTypes()...)
	startAdapter(t, adapter, analytics.InstallTypeOrganic)

	event := adapter.TrimEvent("abc123")
	adapter.Track(event, map[string]analytics.ParameterValue{
		"discount": analytics.Float(0.25),
		"promo":    analytics.Bool(true),
	})

	tracked := vendor.trackedEvents()
	require.Len(t, tracked, 1)
	assert.Equal(t, "abc123", tracked[0].token)
	assert.Equal(t, map[string]string{"discount": "0.25", "promo": "true"}, tracked[0].params)
}

func TestAdapterTrack_NilParams(t *testing.T) {
	adapter, vendor := newAdapter(t, "sandbox", analytics.AllInstallTypes()...)
	startAdapter(t, adapter, analytics.InstallTypeOrganic)

	adapter.Track(adapter.TrimEvent("abc123"), nil)

	tracked := vendor.trackedEvents()
	require.Len(t, tracked, 1)
	assert.Empty(t, tracked[0].params)
}

func TestAdapterTrack_UsesTrimmedName(t *testing.T) {
	adapter, vendor := newAdapter(t, "sandbox", analytics.AllInstallTypes()...)
	startAdapter(t, adapter, analytics.InstallTypeOrganic)

	long := "a_very_long_event_name_that_exceeds_forty_characters_total"
	adapter.Track(adapter.TrimEvent(analytics.Event(long)), nil)

	tracked := vendor.trackedEvents()
	require.Len(t, tracked, 1)
	assert.Equal(t, long[:40], tracked[0].token)
}

func TestAdapterTrack_RejectedEventIsDropped(t *testing.T) {
	adapter, vendor := newAdapter(t, "sandbox", analytics.AllInstallTypes()...)
	startAdapter(t, adapter, analytics.InstallTypeOrganic)

	assert.NotPanics(t, func() {
		adapter.Track(adapter.TrimEvent(""), map[string]analytics.ParameterValue{"a": analytics.Int(1)})
	})
	assert.Empty(t, vendor.trackedEvents())
}

func TestAdapter_CallsBeforeStartAreDropped(t *testing.T) {
	adapter, vendor := newAdapter(t, "sandbox", analytics.AllInstallTypes()...)

	adapter.Track(adapter.TrimEvent("abc123"), nil)
	adapter.Set(adapter.TrimUserProperty("plan"), strPtr("pro"))
	adapter.SetUserID(strPtr("abc123"))

	assert.Empty(t, vendor.trackedEvents())
	_, ok := vendor.sessionValue("plan")
	assert.False(t, ok)
	_, ok = vendor.sessionValue(analytics.UserIDKey)
	assert.False(t, ok)
}

func TestAdapterSet_TriState(t *testing.T) {
	adapter, vendor := newAdapter(t, "sandbox", analytics.AllInstallTypes()...)
	startAdapter(t, adapter, analytics.InstallTypeOrganic)

	key := adapter.TrimUserProperty("subscription_plan_for_the_current_user")
	require.Equal(t, "subscription_plan_for_th", key.String())

	adapter.Set(key, strPtr("pro"))
	val, ok := vendor.sessionValue(key.String())
	require.True(t, ok)
	assert.Equal(t, "pro", val)

	adapter.Set(key, strPtr("team"))
	val, _ = vendor.sessionValue(key.String())
	assert.Equal(t, "team", val)

	adapter.Set(key, nil)
	_, ok = vendor.sessionValue(key.String())
	assert.False(t, ok)

	adapter.Set(key, nil)
	_, ok = vendor.sessionValue(key.String())
	assert.False(t, ok)
}

func TestAdapterSetUserID(t *testing.T) {
	adapter, vendor := newAdapter(t, "sandbox", analytics.AllInstallTypes()...)
	startAdapter(t, adapter, analytics.InstallTypeOrganic)

	adapter.SetUserID(strPtr("abc123"))
	val, ok := vendor.sessionValue("user_id")
	require.True(t, ok)
	assert.Equal(t, "abc123", val)

	adapter.SetUserID(nil)
	_, ok = vendor.sessionValue("user_id")
	assert.False(t, ok)
}

func TestNewAdapter_CopiesInstallTypes(t *testing.T) {
	types := []analytics.InstallType{analytics.InstallTypeOrganic}
	adapter := analytics.NewAdapter("fake", analytics.Config{EnabledInstallTypes: types}, newFakeVendor())

	types[0] = analytics.InstallTypePaid

	err := adapter.Start(context.Background(), analytics.InstallTypePaid, nil, nil)
	assert.ErrorIs(t, err, analytics.ErrInvalidInstallType)
}
