// Package memory provides process-local implementations of the rolling
// stores. All stores are safe for concurrent use.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/grinmorio/rolling/internal/rolling/helper"
	"github.com/grinmorio/rolling/internal/rolling/history"
	"github.com/grinmorio/rolling/internal/rolling/initiative"
)

// HelperStore holds streak states in a map.
type HelperStore struct {
	mu     sync.RWMutex
	states map[helper.Key]helper.State
}

// NewHelperStore creates an empty HelperStore.
func NewHelperStore() *HelperStore {
	return &HelperStore{states: make(map[helper.Key]helper.State)}
}

// Update applies fn to the state at key under the store lock.
func (s *HelperStore) Update(key helper.Key, fn func(helper.State) helper.State) helper.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := fn(s.states[key])
	s.states[key] = next
	return next
}

// Get returns the state at key.
func (s *HelperStore) Get(key helper.Key) (helper.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[key]
	return st, ok
}

// InitiativeStore holds initiative entries per guild.
type InitiativeStore struct {
	mu     sync.RWMutex
	guilds map[string]map[string]initiative.Entry // guildID → userID → entry
}

// NewInitiativeStore creates an empty InitiativeStore.
func NewInitiativeStore() *InitiativeStore {
	return &InitiativeStore{guilds: make(map[string]map[string]initiative.Entry)}
}

// Put inserts or overwrites the entry for (guildID, e.UserID).
func (s *InitiativeStore) Put(_ context.Context, guildID string, e initiative.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guilds[guildID]
	if !ok {
		g = make(map[string]initiative.Entry)
		s.guilds[guildID] = g
	}
	g[e.UserID] = e
	return nil
}

// All returns a copy of the guild's entries.
func (s *InitiativeStore) All(_ context.Context, guildID string) ([]initiative.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := s.guilds[guildID]
	out := make([]initiative.Entry, 0, len(g))
	for _, e := range g {
		out = append(out, e)
	}
	return out, nil
}

// Delete removes the entry and reports whether it existed.
func (s *InitiativeStore) Delete(_ context.Context, guildID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guilds[guildID]
	if !ok {
		return false, nil
	}
	if _, ok := g[userID]; !ok {
		return false, nil
	}
	delete(g, userID)
	if len(g) == 0 {
		delete(s.guilds, guildID)
	}
	return true, nil
}

// Clear removes every entry of guildID.
func (s *InitiativeStore) Clear(_ context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.guilds, guildID)
	return nil
}

// HistoryStore keeps records in insertion order.
type HistoryStore struct {
	mu      sync.RWMutex
	records []history.Record
	ids     map[uuid.UUID]struct{}
}

// NewHistoryStore creates an empty HistoryStore.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{ids: make(map[uuid.UUID]struct{})}
}

// Append stores rec, or returns history.ErrDuplicate if rec.ID is stored.
func (s *HistoryStore) Append(_ context.Context, rec history.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[rec.ID]; ok {
		return history.ErrDuplicate
	}
	s.ids[rec.ID] = struct{}{}
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of every stored record, oldest first.
func (s *HistoryStore) Records() []history.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]history.Record(nil), s.records...)
}

// Aggregates sums every face of (guildID, userID) per roll kind and die size.
func (s *HistoryStore) Aggregates(_ context.Context, guildID, userID string) ([]history.Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := make(map[[2]int]int)
	var out []history.Aggregate
	for _, rec := range s.records {
		if rec.GuildID != guildID || rec.UserID != userID {
			continue
		}
		for _, f := range rec.Outcome.Faces {
			k := [2]int{int(rec.Outcome.Kind), f.Sides}
			i, ok := index[k]
			if !ok {
				i = len(out)
				index[k] = i
				out = append(out, history.Aggregate{Kind: rec.Outcome.Kind, Sides: f.Sides})
			}
			out[i].Sum += int64(f.Value)
			out[i].Count++
		}
	}
	return out, nil
}
