package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestEffectiveWindowDefault(t *testing.T) {
	activity := Activity{StartTime: strPtr("12:00"), EndTime: strPtr("13:00")}

	window, ok := activity.EffectiveWindow(Monday)
	require.True(t, ok)
	assert.Equal(t, TimeRange{StartTime: "12:00", EndTime: "13:00"}, window)
}

func TestEffectiveWindowOverrideReplacesDefault(t *testing.T) {
	activity := Activity{
		StartTime: strPtr("12:00"), EndTime: strPtr("13:00"),
		Overrides: ActivityOverrides{
			Tuesday: {Window: &TimeRange{StartTime: "11:00", EndTime: "11:30"}},
		},
	}

	window, ok := activity.EffectiveWindow(Tuesday)
	require.True(t, ok)
	assert.Equal(t, "11:00", window.StartTime)

	window, ok = activity.EffectiveWindow(Monday)
	require.True(t, ok)
	assert.Equal(t, "12:00", window.StartTime)
}

func TestEffectiveWindowClearedOverride(t *testing.T) {
	activity := Activity{
		StartTime: strPtr("12:00"), EndTime: strPtr("13:00"),
		Overrides: ActivityOverrides{Monday: {Cleared: true}},
	}

	_, ok := activity.EffectiveWindow(Monday)
	assert.False(t, ok)
}

func TestEffectiveWindowNoDefaultNoOverride(t *testing.T) {
	activity := Activity{StartTime: strPtr("12:00")}

	_, ok := activity.EffectiveWindow(Monday)
	assert.False(t, ok)
}

func TestDayOverrideJSONRoundTrip(t *testing.T) {
	overrides := ActivityOverrides{
		Monday:  {Cleared: true},
		Tuesday: {Window: &TimeRange{StartTime: "10:00", EndTime: "10:30"}},
	}

	data, err := json.Marshal(overrides)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"MONDAY":null`)

	var decoded ActivityOverrides
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded[Monday].Cleared)
	require.NotNil(t, decoded[Tuesday].Window)
	assert.Equal(t, "10:00", decoded[Tuesday].Window.StartTime)

	// A cleared override is distinct from the absence of one.
	_, hasWednesday := decoded[Wednesday]
	assert.False(t, hasWednesday)
}

func TestParseWeekday(t *testing.T) {
	day, ok := ParseWeekday("monday")
	require.True(t, ok)
	assert.Equal(t, Monday, day)

	_, ok = ParseWeekday("SATURDAY")
	assert.False(t, ok)
}
