package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grinmorio/rolling/internal/rolling/dice"
	"github.com/grinmorio/rolling/internal/rolling/history"
)

// HistoryRepository stores roll history in the roll_history table.
type HistoryRepository struct {
	db *pgxpool.Pool
}

// NewHistoryRepository creates a HistoryRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts rec. Multi-roll records store a NULL total and their
// repetitions.
//
// Postcondition: Returns nil on success, history.ErrDuplicate if rec.ID exists,
// or a wrapped database error.
func (r *HistoryRepository) Append(ctx context.Context, rec history.Record) error {
	out := rec.Outcome

	faces, err := json.Marshal(nonNilFaces(out.Faces))
	if err != nil {
		return fmt.Errorf("encoding faces: %w", err)
	}
	details, err := json.Marshal(nonNilStrings(out.Details))
	if err != nil {
		return fmt.Errorf("encoding details: %w", err)
	}

	var total *int
	var repetitions []byte
	if out.IsMulti() {
		repetitions, err = json.Marshal(out.Repetitions)
		if err != nil {
			return fmt.Errorf("encoding repetitions: %w", err)
		}
	} else {
		t := out.Total
		total = &t
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO roll_history
		   (id, guild_id, user_id, username, expression, roll_type, total, modifier, faces, details, repetitions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.GuildID, rec.UserID, rec.Username, rec.Expression, out.Kind.String(),
		total, out.Modifier, faces, details, repetitions, rec.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return history.ErrDuplicate
		}
		return fmt.Errorf("inserting roll history: %w", err)
	}
	return nil
}

// Aggregates sums every stored face of (guildID, userID) per roll type and
// die size.
//
// Postcondition: Returns one Aggregate per (kind, sides) pair, or a wrapped
// database error.
func (r *HistoryRepository) Aggregates(ctx context.Context, guildID, userID string) ([]history.Aggregate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT h.roll_type,
		       (f->>'sides')::int            AS sides,
		       SUM((f->>'value')::bigint)::bigint,
		       COUNT(*)
		FROM roll_history h
		CROSS JOIN LATERAL jsonb_array_elements(h.faces) AS f
		WHERE h.guild_id = $1 AND h.user_id = $2
		GROUP BY h.roll_type, sides`,
		guildID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying roll aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []history.Aggregate
	for rows.Next() {
		var (
			label string
			a     history.Aggregate
		)
		if err := rows.Scan(&label, &a.Sides, &a.Sum, &a.Count); err != nil {
			return nil, fmt.Errorf("scanning roll aggregate: %w", err)
		}
		kind, err := dice.ParseKind(label)
		if err != nil {
			return nil, err
		}
		a.Kind = kind
		aggs = append(aggs, a)
	}
	return aggs, rows.Err()
}

func nonNilFaces(f []dice.Face) []dice.Face {
	if f == nil {
		return []dice.Face{}
	}
	return f
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
