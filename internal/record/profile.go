package record

import (
	"context"
	"database/sql"
	"time"
)

// UpsertProfile inserts or updates a user profile summary.
func (db *DB) UpsertProfile(ctx context.Context, p *Profile) error {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `
		INSERT INTO profiles (id, display_name, avatar_url, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name != '' THEN excluded.display_name ELSE profiles.display_name END,
			avatar_url = CASE WHEN excluded.avatar_url != '' THEN excluded.avatar_url ELSE profiles.avatar_url END,
			updated_at = excluded.updated_at`,
		p.ID, p.DisplayName, p.AvatarURL, now)
	return err
}

// GetProfile returns a profile by id, or (nil, nil) if absent.
func (db *DB) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := db.QueryRowContext(ctx,
		`SELECT id, display_name, avatar_url FROM profiles WHERE id = ?`, userID).
		Scan(&p.ID, &p.DisplayName, &p.AvatarURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
