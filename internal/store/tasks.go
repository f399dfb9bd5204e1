package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/christopherklint97/skedule/internal/model"
)

const taskColumns = `id, user_id, name, description, difficulty, focus_level, focus_minutes, time_preference, estimated_minutes, created_at`

func (r repo) InsertTask(ctx context.Context, t *model.Task) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Name, t.Description, string(t.Difficulty), string(t.FocusLevel), t.FocusMinutes,
		nullPreference(t.Preference), nullInt(t.EstimatedMinutes), formatTime(t.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

// GetTask returns the task only if it belongs to userID.
func (r repo) GetTask(ctx context.Context, userID, id string) (*model.Task, error) {
	tasks, err := r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return &tasks[0], nil
}

// ListTasks returns the user's tasks, newest first.
func (r repo) ListTasks(ctx context.Context, userID string) ([]model.Task, error) {
	return r.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id`,
		userID,
	)
}

func (r repo) UpdateTask(ctx context.Context, t *model.Task) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE tasks SET name = ?, description = ?, difficulty = ?, focus_level = ?, focus_minutes = ?,
		 time_preference = ?, estimated_minutes = ?
		 WHERE id = ? AND user_id = ?`,
		t.Name, t.Description, string(t.Difficulty), string(t.FocusLevel), t.FocusMinutes,
		nullPreference(t.Preference), nullInt(t.EstimatedMinutes),
		t.ID, t.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return requireAffected(result, "task", t.ID)
}

// DeleteTask removes the task; its slots go with it through the foreign key.
func (r repo) DeleteTask(ctx context.Context, userID, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return requireAffected(result, "task", id)
}

func (r repo) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var difficulty, level, createdStr string
		var pref sql.NullString
		var estimate sql.NullInt64

		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Name, &t.Description, &difficulty, &level, &t.FocusMinutes,
			&pref, &estimate, &createdStr,
		); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}

		t.Difficulty = model.Difficulty(difficulty)
		t.FocusLevel = model.FocusLevel(level)
		if pref.Valid {
			p := model.Preference(pref.String)
			t.Preference = &p
		}
		if estimate.Valid {
			m := int(estimate.Int64)
			t.EstimatedMinutes = &m
		}
		t.CreatedAt = parseTime(createdStr)

		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

func nullPreference(p *model.Preference) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*p), Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func requireAffected(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
