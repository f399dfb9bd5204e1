package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWhen(t *testing.T) {
	stockholm, err := time.LoadLocation("Europe/Stockholm")
	require.NoError(t, err)
	ref := time.Date(2025, 3, 3, 8, 0, 0, 0, stockholm) // Monday

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"rfc3339", "2025-03-04T09:00:00Z", time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)},
		{"date and time in location", "2025-03-04 09:30", time.Date(2025, 3, 4, 9, 30, 0, 0, stockholm)},
		{"date only", "2025-03-05", time.Date(2025, 3, 5, 0, 0, 0, 0, stockholm)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWhen(tt.in, ref, stockholm)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseWhen_Natural(t *testing.T) {
	ref := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	got, err := parseWhen("tomorrow", ref, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Day())
}

func TestParseWhen_Rejects(t *testing.T) {
	ref := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	_, err := parseWhen("", ref, time.UTC)
	assert.Error(t, err)
}

func TestParseRange_Defaults(t *testing.T) {
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	start, end, err := parseRange("", "", now, time.UTC, 7*24*time.Hour)
	require.NoError(t, err)
	assert.True(t, start.Equal(now))
	assert.True(t, end.Equal(now.Add(7*24*time.Hour)))

	start, end, err = parseRange("2025-03-04", "2025-03-06", now, time.UTC, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 4, start.Day())
	assert.Equal(t, 48*time.Hour, end.Sub(start))
}
