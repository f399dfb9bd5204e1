package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/christopherklint97/skedule/internal/interval"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusApproved))
	assert.True(t, StatusPending.CanTransition(StatusRejected))
	assert.False(t, StatusPending.CanTransition(StatusPending))
	assert.False(t, StatusApproved.CanTransition(StatusRejected))
	assert.False(t, StatusApproved.CanTransition(StatusPending))
	assert.False(t, StatusRejected.CanTransition(StatusApproved))

	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusPending.Terminal())

	_, err := ParseStatus("done")
	assert.Error(t, err)
}

func TestTask_FocusConsistency(t *testing.T) {
	var task Task

	task.SetFocusMinutes(5)
	assert.Equal(t, MinFocusMinutes, task.FocusMinutes)
	assert.Equal(t, FocusShort, task.FocusLevel)

	task.SetFocusMinutes(1000)
	assert.Equal(t, MaxFocusMinutes, task.FocusMinutes)
	assert.Equal(t, FocusLong, task.FocusLevel)

	task.SetFocusMinutes(50)
	assert.Equal(t, FocusMedium, task.FocusLevel)

	task.SetFocusLevel(FocusLong)
	assert.Equal(t, 90, task.FocusMinutes)
	assert.Equal(t, 90*time.Minute, task.BlockDuration())
}

func TestTask_BlockDurationFallsBackToLevel(t *testing.T) {
	task := Task{FocusLevel: FocusShort}
	assert.Equal(t, 25*time.Minute, task.BlockDuration())
}

func TestTask_EffectivePreference(t *testing.T) {
	task := Task{}
	assert.Equal(t, PreferMidday, task.EffectivePreference())

	night := PreferNight
	task.Preference = &night
	assert.Equal(t, PreferNight, task.EffectivePreference())
}

func TestParsePreference_Aliases(t *testing.T) {
	p, err := ParsePreference("day")
	require.NoError(t, err)
	assert.Equal(t, PreferMorning, p)

	_, err = ParsePreference("brunch")
	assert.Error(t, err)
}

func TestProgress_Complete(t *testing.T) {
	est := 60
	assert.True(t, Progress{ApprovedMinutes: 60, EstimatedMinutes: &est}.Complete())
	assert.False(t, Progress{ApprovedMinutes: 59, EstimatedMinutes: &est}.Complete())
	assert.False(t, Progress{ApprovedMinutes: 500}.Complete())
	assert.Equal(t, 1, Progress{ApprovedMinutes: 59, EstimatedMinutes: &est}.RemainingMinutes())
	assert.Equal(t, 0, Progress{ApprovedMinutes: 90, EstimatedMinutes: &est}.RemainingMinutes())
}

func TestNewSlot_RejectsInvertedRange(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	_, err := NewSlot("s1", "u1", "t1", interval.New(now, now))
	assert.ErrorIs(t, err, ErrInvalidSlot)

	s, err := NewSlot("s1", "u1", "t1", interval.New(now, now.Add(50*time.Minute)))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s.Status)
	assert.Equal(t, 50, s.Minutes())
}

func TestProfile_Location(t *testing.T) {
	var p *Profile
	assert.Equal(t, time.UTC, p.Location())
	assert.Equal(t, time.UTC, (&Profile{Timezone: "Not/AZone"}).Location())
	assert.Equal(t, "Europe/Stockholm", (&Profile{Timezone: "Europe/Stockholm"}).Location().String())
}
