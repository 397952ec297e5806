package analytics_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"adjust-consumer/internal/analytics"
)

func TestTrimEvent_LongName(t *testing.T) {
	input := "a_very_long_event_name_that_exceeds_forty_characters_total"

	trimmed := analytics.TrimEvent(analytics.Event(input), analytics.MaxEventNameLength)

	assert.Equal(t, 40, utf8.RuneCountInString(trimmed.String()))
	assert.Equal(t, input[:40], trimmed.String())
}

func TestTrimEvent_Laws(t *testing.T) {
	inputs := []string{
		"",
		"abc123",
		strings.Repeat("x", 40),
		strings.Repeat("y", 41),
		strings.Repeat("é", 50),
		"purchase_completed_with_a_really_long_suffix_🎉🎉🎉",
	}

	for _, in := range inputs {
		once := analytics.TrimEvent(analytics.Event(in), analytics.MaxEventNameLength)
		twice := analytics.TrimEvent(analytics.Event(once.String()), analytics.MaxEventNameLength)

		assert.Equal(t, once, twice, "trim must be idempotent for %q", in)
		assert.LessOrEqual(t, utf8.RuneCountInString(once.String()), analytics.MaxEventNameLength)
		assert.True(t, strings.HasPrefix(in, once.String()))
		if utf8.RuneCountInString(in) <= analytics.MaxEventNameLength {
			assert.Equal(t, in, once.String())
		}
	}
}

func TestTrimUserProperty_Laws(t *testing.T) {
	inputs := []string{"", "plan", strings.Repeat("k", 24), "subscription_plan_for_the_current_user", strings.Repeat("ü", 30)}

	for _, in := range inputs {
		once := analytics.TrimUserProperty(analytics.UserProperty(in), analytics.MaxUserPropertyLength)
		twice := analytics.TrimUserProperty(analytics.UserProperty(once.String()), analytics.MaxUserPropertyLength)

		assert.Equal(t, once, twice)
		assert.LessOrEqual(t, utf8.RuneCountInString(once.String()), analytics.MaxUserPropertyLength)
		if utf8.RuneCountInString(in) <= analytics.MaxUserPropertyLength {
			assert.Equal(t, in, once.String())
		}
	}
}

func TestTrim_CountsCharactersNotBytes(t *testing.T) {
	in := strings.Repeat("é", 30)

	trimmed := analytics.TrimUserProperty(analytics.UserProperty(in), analytics.MaxUserPropertyLength)

	assert.Equal(t, strings.Repeat("é", 24), trimmed.String())
	assert.True(t, utf8.ValidString(trimmed.String()))
}

func TestTrim_KeepsInvalidBytesAsPrefix(t *testing.T) {
	in := "\xff" + strings.Repeat("a", 30)

	got := analytics.TrimUserProperty(analytics.UserProperty(in), analytics.MaxUserPropertyLength).String()

	assert.True(t, strings.HasPrefix(in, got))
	assert.Equal(t, analytics.MaxUserPropertyLength, utf8.RuneCountInString(got))
	assert.Equal(t, "\xff"+strings.Repeat("a", 23), got)

	short := "\xfe\xffab"
	assert.Equal(t, short, analytics.TrimEvent(analytics.Event(short), analytics.MaxEventNameLength).String())
}
