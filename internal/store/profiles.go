package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/christopherklint97/skedule/internal/model"
)

// GetProfile returns the stored profile, or a UTC default when none exists.
func (r repo) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	p := model.Profile{UserID: userID}
	var updated string
	err := r.q.QueryRowContext(ctx,
		`SELECT display_name, timezone, updated_at FROM user_profiles WHERE user_id = ?`,
		userID,
	).Scan(&p.DisplayName, &p.Timezone, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.Profile{UserID: userID, Timezone: "UTC"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

func (r repo) UpsertProfile(ctx context.Context, p *model.Profile) error {
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", p.Timezone, err)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, display_name, timezone, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   display_name = excluded.display_name,
		   timezone = excluded.timezone,
		   updated_at = excluded.updated_at`,
		p.UserID, p.DisplayName, p.Timezone, formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}
