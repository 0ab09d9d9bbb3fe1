// Package history records every roll outcome and derives per-user
// statistics from the record.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/grinmorio/rolling/internal/rolling/dice"
)

// Record is one persisted roll. Records are append-only.
type Record struct {
	ID         uuid.UUID
	GuildID    string
	UserID     string
	Username   string
	Expression string
	Outcome    dice.Outcome
	CreatedAt  time.Time
}

// NewRecord stamps a Record for out with a fresh ID and the current time.
func NewRecord(guildID, userID, username, expression string, out dice.Outcome) Record {
	return Record{
		ID:         uuid.New(),
		GuildID:    guildID,
		UserID:     userID,
		Username:   username,
		Expression: expression,
		Outcome:    out,
		CreatedAt:  time.Now().UTC(),
	}
}

// Aggregate is the face total and count for one (kind, die size) pair of a
// user's history.
type Aggregate struct {
	Kind  dice.Kind
	Sides int
	Sum   int64
	Count int64
}

// ErrDuplicate is returned by Store.Append when a record with the same ID is
// already stored.
var ErrDuplicate = errors.New("history record already stored")

// Store persists records and aggregates their faces.
type Store interface {
	// Append persists rec, or returns ErrDuplicate if rec.ID is stored.
	Append(ctx context.Context, rec Record) error
	// Aggregates groups every face recorded for (guildID, userID) by roll
	// kind and die size.
	Aggregates(ctx context.Context, guildID, userID string) ([]Aggregate, error)
}
