package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	MinFocusMinutes = 10
	MaxFocusMinutes = 240
)

// FocusLevel is the coarse focus-duration bucket of a task.
type FocusLevel string

const (
	FocusShort  FocusLevel = "short"
	FocusMedium FocusLevel = "medium"
	FocusLong   FocusLevel = "long"
)

var focusMinutes = map[FocusLevel]int{
	FocusShort:  25,
	FocusMedium: 50,
	FocusLong:   90,
}

// Minutes returns the fixed block length for the level. Unknown levels use medium.
func (l FocusLevel) Minutes() int {
	if m, ok := focusMinutes[l]; ok {
		return m
	}
	return focusMinutes[FocusMedium]
}

func ParseFocusLevel(s string) (FocusLevel, error) {
	l := FocusLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := focusMinutes[l]; !ok {
		return "", fmt.Errorf("unknown focus level %q (want short, medium or long)", s)
	}
	return l, nil
}

// LevelForMinutes derives the bucket nearest to m.
func LevelForMinutes(m int) FocusLevel {
	switch {
	case m < 38:
		return FocusShort
	case m < 70:
		return FocusMedium
	default:
		return FocusLong
	}
}

// ClampFocusMinutes bounds m to [MinFocusMinutes, MaxFocusMinutes].
func ClampFocusMinutes(m int) int {
	if m < MinFocusMinutes {
		return MinFocusMinutes
	}
	if m > MaxFocusMinutes {
		return MaxFocusMinutes
	}
	return m
}

// Preference is the time-of-day tag that restricts where a task's blocks may go.
type Preference string

const (
	PreferMorning Preference = "morning"
	PreferMidday  Preference = "midday"
	PreferNight   Preference = "night"
)

func ParsePreference(s string) (Preference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "morning", "day":
		return PreferMorning, nil
	case "midday", "afternoon":
		return PreferMidday, nil
	case "night", "evening":
		return PreferNight, nil
	}
	return "", fmt.Errorf("unknown time preference %q (want morning, midday or night)", s)
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty %q (want easy, medium or hard)", s)
}

// Task is a unit of work the user wants time blocked for.
type Task struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Difficulty  Difficulty
	FocusLevel  FocusLevel
	// FocusMinutes is the per-block length. Kept consistent with FocusLevel
	// through SetFocusMinutes and SetFocusLevel.
	FocusMinutes     int
	Preference       *Preference
	EstimatedMinutes *int
	CreatedAt        time.Time
}

// SetFocusMinutes clamps m and derives the matching level.
func (t *Task) SetFocusMinutes(m int) {
	t.FocusMinutes = ClampFocusMinutes(m)
	t.FocusLevel = LevelForMinutes(t.FocusMinutes)
}

// SetFocusLevel sets the level and resets the minutes to its default.
func (t *Task) SetFocusLevel(l FocusLevel) {
	t.FocusLevel = l
	t.FocusMinutes = l.Minutes()
}

// BlockDuration is the length of each suggested block for the task.
func (t *Task) BlockDuration() time.Duration {
	m := t.FocusMinutes
	if m == 0 {
		m = t.FocusLevel.Minutes()
	}
	return time.Duration(ClampFocusMinutes(m)) * time.Minute
}

// EffectivePreference returns the task's preference, defaulting to midday.
func (t *Task) EffectivePreference() Preference {
	if t.Preference == nil {
		return PreferMidday
	}
	return *t.Preference
}

// Progress summarises approved effort against the estimate. Complete is
// derived every time and never stored.
type Progress struct {
	ApprovedMinutes  int
	EstimatedMinutes *int
}

func (p Progress) Complete() bool {
	return p.EstimatedMinutes != nil && p.ApprovedMinutes >= *p.EstimatedMinutes
}

// RemainingMinutes is the estimate minus approved effort, never negative.
// Without an estimate it returns 0.
func (p Progress) RemainingMinutes() int {
	if p.EstimatedMinutes == nil {
		return 0
	}
	if r := *p.EstimatedMinutes - p.ApprovedMinutes; r > 0 {
		return r
	}
	return 0
}

// Profile carries per-user settings the scheduler needs.
type Profile struct {
	UserID      string
	DisplayName string
	Timezone    string
	UpdatedAt   time.Time
}

// Location resolves the profile timezone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	if p == nil || p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
