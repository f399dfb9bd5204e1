package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/christopherklint97/skedule/internal/model"
)

// SlotFilter selects suggested slots. Zero fields are ignored; UserID is
// always required so a caller can never touch another user's rows.
type SlotFilter struct {
	UserID   string
	TaskID   string
	IDs      []string
	Statuses []model.Status
	// From and To select slots overlapping [From, To) when set.
	From time.Time
	To   time.Time
}

func (f SlotFilter) where() (string, []any, error) {
	if f.UserID == "" {
		return "", nil, fmt.Errorf("slot filter without user id")
	}

	clauses := []string{"s.user_id = ?"}
	args := []any{f.UserID}

	if f.TaskID != "" {
		clauses = append(clauses, "s.task_id = ?")
		args = append(args, f.TaskID)
	}
	if len(f.IDs) > 0 {
		clauses = append(clauses, "s.id IN ("+placeholders(len(f.IDs))+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if len(f.Statuses) > 0 {
		clauses = append(clauses, "s.status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "s.start_time < ?")
		args = append(args, formatTime(f.To))
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "s.end_time > ?")
		args = append(args, formatTime(f.From))
	}

	return strings.Join(clauses, " AND "), args, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// SlotView is a slot joined with its task's name.
type SlotView struct {
	model.Slot
	TaskName string
}

const slotColumns = `s.id, s.user_id, s.task_id, s.start_time, s.end_time, s.status, s.calendar_event_id, s.created_at`

func (r repo) InsertSlot(ctx context.Context, s *model.Slot) error {
	if !s.End.After(s.Start) {
		return model.ErrInvalidSlot
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO suggested_slots (id, user_id, task_id, start_time, end_time, status, calendar_event_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.TaskID, formatTime(s.Start), formatTime(s.End), string(s.Status),
		nullString(s.CalendarEventID), formatTime(s.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting slot: %w", err)
	}
	return nil
}

// GetSlot returns the slot only if it belongs to userID.
func (r repo) GetSlot(ctx context.Context, userID, id string) (*model.Slot, error) {
	slots, err := r.ListSlots(ctx, SlotFilter{UserID: userID, IDs: []string{id}})
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("suggestion %s: %w", id, ErrNotFound)
	}
	return &slots[0], nil
}

// ListSlots returns matching slots ordered by start time.
func (r repo) ListSlots(ctx context.Context, f SlotFilter) ([]model.Slot, error) {
	where, args, err := f.where()
	if err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM suggested_slots s WHERE `+where+` ORDER BY s.start_time ASC, s.id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying slots: %w", err)
	}
	defer rows.Close()

	var slots []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// ListSlotViews is ListSlots with the task name attached.
func (r repo) ListSlotViews(ctx context.Context, f SlotFilter) ([]SlotView, error) {
	where, args, err := f.where()
	if err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+slotColumns+`, t.name
		 FROM suggested_slots s JOIN tasks t ON t.id = s.task_id
		 WHERE `+where+` ORDER BY s.start_time ASC, s.id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying slots: %w", err)
	}
	defer rows.Close()

	var views []SlotView
	for rows.Next() {
		var v SlotView
		var eventID sql.NullString
		var status, startStr, endStr, createdStr string
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.TaskID, &startStr, &endStr, &status, &eventID, &createdStr, &v.TaskName,
		); err != nil {
			return nil, fmt.Errorf("scanning slot: %w", err)
		}
		if err := fillSlot(&v.Slot, status, startStr, endStr, createdStr, eventID); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func (r repo) CountSlots(ctx context.Context, f SlotFilter) (int, error) {
	where, args, err := f.where()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM suggested_slots s WHERE `+where, args...,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting slots: %w", err)
	}
	return n, nil
}

// SetSlotStatus updates every slot matching f and returns how many changed.
// Including the current status in f.Statuses makes this a compare-and-set.
func (r repo) SetSlotStatus(ctx context.Context, f SlotFilter, status model.Status) (int64, error) {
	where, args, err := f.where()
	if err != nil {
		return 0, err
	}
	result, err := r.q.ExecContext(ctx,
		`UPDATE suggested_slots AS s SET status = ? WHERE `+where,
		append([]any{string(status)}, args...)...,
	)
	if err != nil {
		return 0, fmt.Errorf("updating slot status: %w", err)
	}
	return result.RowsAffected()
}

func (r repo) SetSlotEventID(ctx context.Context, id, eventID string) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE suggested_slots SET calendar_event_id = ? WHERE id = ?`,
		nullString(eventID), id,
	)
	if err != nil {
		return fmt.Errorf("updating slot event id: %w", err)
	}
	return requireAffected(result, "suggestion", id)
}

func (r repo) DeleteSlots(ctx context.Context, f SlotFilter) (int64, error) {
	where, args, err := f.where()
	if err != nil {
		return 0, err
	}
	result, err := r.q.ExecContext(ctx, `DELETE FROM suggested_slots AS s WHERE `+where, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting slots: %w", err)
	}
	return result.RowsAffected()
}

func scanSlot(rows *sql.Rows) (model.Slot, error) {
	var s model.Slot
	var eventID sql.NullString
	var status, startStr, endStr, createdStr string
	if err := rows.Scan(&s.ID, &s.UserID, &s.TaskID, &startStr, &endStr, &status, &eventID, &createdStr); err != nil {
		return s, fmt.Errorf("scanning slot: %w", err)
	}
	err := fillSlot(&s, status, startStr, endStr, createdStr, eventID)
	return s, err
}

func fillSlot(s *model.Slot, status, startStr, endStr, createdStr string, eventID sql.NullString) error {
	st, err := model.ParseStatus(status)
	if err != nil {
		return fmt.Errorf("slot %s: %w", s.ID, err)
	}
	s.Status = st
	s.Start = parseTime(startStr)
	s.End = parseTime(endStr)
	s.CreatedAt = parseTime(createdStr)
	s.CalendarEventID = eventID.String
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
