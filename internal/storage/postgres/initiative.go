package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grinmorio/rolling/internal/rolling/initiative"
)

// InitiativeRepository stores initiative entries in the initiative_entries
// table, one row per (guild_id, user_id).
type InitiativeRepository struct {
	db *pgxpool.Pool
}

// NewInitiativeRepository creates an InitiativeRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewInitiativeRepository(db *pgxpool.Pool) *InitiativeRepository {
	return &InitiativeRepository{db: db}
}

// Put upserts the entry for (guildID, e.UserID) in a single statement.
func (r *InitiativeRepository) Put(ctx context.Context, guildID string, e initiative.Entry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO initiative_entries (guild_id, user_id, username, value)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (guild_id, user_id)
		 DO UPDATE SET username = EXCLUDED.username, value = EXCLUDED.value, updated_at = NOW()`,
		guildID, e.UserID, e.Username, e.Value,
	)
	if err != nil {
		return fmt.Errorf("upserting initiative: %w", err)
	}
	return nil
}

// All returns every entry of guildID ordered by value descending.
func (r *InitiativeRepository) All(ctx context.Context, guildID string) ([]initiative.Entry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, username, value
		 FROM initiative_entries
		 WHERE guild_id = $1
		 ORDER BY value DESC, username, user_id`,
		guildID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying initiative: %w", err)
	}
	defer rows.Close()

	var entries []initiative.Entry
	for rows.Next() {
		var e initiative.Entry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Value); err != nil {
			return nil, fmt.Errorf("scanning initiative: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes the entry and reports whether a row existed.
func (r *InitiativeRepository) Delete(ctx context.Context, guildID, userID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM initiative_entries WHERE guild_id = $1 AND user_id = $2`,
		guildID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("deleting initiative: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Clear removes every entry of guildID.
func (r *InitiativeRepository) Clear(ctx context.Context, guildID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM initiative_entries WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("clearing initiative: %w", err)
	}
	return nil
}
