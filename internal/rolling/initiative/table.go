// Package initiative maintains the per-guild initiative order.
package initiative

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/grinmorio/rolling/internal/apperr"
)

// Entry is one participant's standing in a guild's initiative.
type Entry struct {
	UserID   string `json:"userId" yaml:"userId"`
	Username string `json:"username" yaml:"username"`
	Value    int    `json:"valor" yaml:"valor"`
}

var (
	// ErrEmptyList is returned by List when a guild has no entries.
	ErrEmptyList = apperr.New(apperr.CodeNotFound, "Não há iniciativas para listar.")
	// ErrNotFound is returned by Remove when the user has no entry.
	ErrNotFound = apperr.New(apperr.CodeNotFound, "Utilizador não encontrado na lista de iniciativa.")
	// ErrInvalidValue is returned by Set when |value| exceeds MaxValue.
	ErrInvalidValue = apperr.New(apperr.CodeValidation, "initiative value out of range")
)

// MaxValue bounds a stored initiative in absolute value. It admits a natural
// 20 plus the largest dice modifier.
const MaxValue = 10020

// Store persists initiative entries keyed by (guildID, userID). Every method
// is atomic per key.
type Store interface {
	// Put inserts or overwrites the entry for (guildID, e.UserID).
	Put(ctx context.Context, guildID string, e Entry) error
	// All returns every entry of guildID in unspecified order.
	All(ctx context.Context, guildID string) ([]Entry, error)
	// Delete removes the entry and reports whether it existed.
	Delete(ctx context.Context, guildID, userID string) (bool, error)
	// Clear removes every entry of guildID.
	Clear(ctx context.Context, guildID string) error
}

// Table is the initiative service over a Store.
type Table struct {
	store Store
}

// NewTable creates a Table.
//
// Precondition: store must be non-nil.
func NewTable(store Store) *Table {
	return &Table{store: store}
}

// Set upserts the entry for (guildID, userID) with value and returns the
// guild's sorted list.
//
// Postcondition: the returned list contains exactly one entry for userID, or
// ErrInvalidValue is returned and nothing is stored.
func (t *Table) Set(ctx context.Context, guildID, userID, username string, value int) ([]Entry, error) {
	if value < -MaxValue || value > MaxValue {
		return nil, apperr.Wrap(apperr.CodeValidation,
			fmt.Sprintf("Valor de iniciativa inválido: %d (limite ±%d).", value, MaxValue), ErrInvalidValue)
	}
	e := Entry{UserID: userID, Username: username, Value: value}
	if err := t.store.Put(ctx, guildID, e); err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "saving initiative", err)
	}
	entries, err := t.all(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// List returns the guild's entries sorted by Value descending.
//
// Postcondition: returns ErrEmptyList when the guild has no entries.
func (t *Table) List(ctx context.Context, guildID string) ([]Entry, error) {
	entries, err := t.all(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEmptyList
	}
	return entries, nil
}

// Remove deletes the user's entry.
//
// Postcondition: returns ErrNotFound when no entry existed.
func (t *Table) Remove(ctx context.Context, guildID, userID string) error {
	ok, err := t.store.Delete(ctx, guildID, userID)
	if err != nil {
		return apperr.Wrap(apperr.CodePersistence, "removing initiative", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Clear removes every entry of the guild. Clearing an empty guild succeeds.
func (t *Table) Clear(ctx context.Context, guildID string) error {
	if err := t.store.Clear(ctx, guildID); err != nil {
		return apperr.Wrap(apperr.CodePersistence, "clearing initiative", err)
	}
	return nil
}

func (t *Table) all(ctx context.Context, guildID string) ([]Entry, error) {
	entries, err := t.store.All(ctx, guildID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "loading initiative", err)
	}
	Sort(entries)
	return entries, nil
}

// Sort orders entries by Value descending, then Username, then UserID, so
// ties list the same way on every read.
func Sort(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Username, b.Username); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
}
