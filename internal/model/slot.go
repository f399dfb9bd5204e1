// Package model holds the typed records shared by the scheduler, the store
// and the CLI.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/christopherklint97/skedule/internal/interval"
)

// Status is the lifecycle state of a suggested slot.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// transitions lists every allowed move. Approved and rejected are terminal.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: nil,
	StatusRejected: nil,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a slot in s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown slot status %q", v)
	}
	return s, nil
}

var ErrInvalidSlot = errors.New("slot end must be after start")

// Slot is a proposed time block for a task.
type Slot struct {
	ID              string
	UserID          string
	TaskID          string
	Start           time.Time
	End             time.Time
	Status          Status
	CalendarEventID string
	CreatedAt       time.Time
}

// NewSlot builds a pending slot, rejecting empty or inverted ranges.
func NewSlot(id, userID, taskID string, iv interval.Interval) (Slot, error) {
	if !iv.End.After(iv.Start) {
		return Slot{}, ErrInvalidSlot
	}
	return Slot{
		ID:     id,
		UserID: userID,
		TaskID: taskID,
		Start:  iv.Start,
		End:    iv.End,
		Status: StatusPending,
	}, nil
}

func (s Slot) Interval() interval.Interval {
	return interval.New(s.Start, s.End)
}

func (s Slot) Minutes() int {
	return int(s.End.Sub(s.Start).Minutes())
}
