package rolling_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/grinmorio/rolling/internal/apperr"
	"github.com/grinmorio/rolling/internal/rolling"
	"github.com/grinmorio/rolling/internal/rolling/dice"
	"github.com/grinmorio/rolling/internal/rolling/helper"
	"github.com/grinmorio/rolling/internal/rolling/history"
	"github.com/grinmorio/rolling/internal/rolling/initiative"
	"github.com/grinmorio/rolling/internal/storage/memory"
)

type seqSource struct {
	mu    sync.Mutex
	faces []int
}

func (s *seqSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.faces[0]
	s.faces = s.faces[1:]
	return v - 1
}

// syncSink appends records straight into the store so tests can read them
// back without waiting on a worker.
type syncSink struct {
	store *memory.HistoryStore
}

func (s syncSink) Submit(rec history.Record) bool {
	return s.store.Append(context.Background(), rec) == nil
}

type fixture struct {
	svc     *rolling.Service
	history *memory.HistoryStore
}

func newFixture(t *testing.T, faces ...int) fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	hist := memory.NewHistoryStore()
	tracker := helper.NewTracker(memory.NewHelperStore())

	var src dice.Source = dice.NewCryptoSource()
	if len(faces) > 0 {
		src = &seqSource{faces: faces}
	}

	svc := rolling.NewService(rolling.Deps{
		Evaluator:  dice.NewEvaluator(src, tracker, logger),
		Tracker:    tracker,
		Initiative: initiative.NewTable(memory.NewInitiativeStore()),
		History:    syncSink{store: hist},
		Stats:      history.NewReporter(hist),
		Logger:     logger,
	})
	return fixture{svc: svc, history: hist}
}

func TestRollExpression_RecordsHistory(t *testing.T) {
	f := newFixture(t, 13)
	out, err := f.svc.RollExpression(context.Background(), "1D20+5", "u1", "g1", "Alice")
	require.NoError(t, err)

	assert.Equal(t, 18, out.Total)
	assert.Equal(t, []string{"🎲 1d20: [13] = 13", "🔧 Modificador: +5"}, out.Details)

	recs := f.history.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "1d20+5", recs[0].Expression)
	assert.Equal(t, "Alice", recs[0].Username)
	assert.Equal(t, dice.KindSimple, recs[0].Outcome.Kind)
}

func TestRollExpression_NotARoll(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RollExpression(context.Background(), "bom dia", "u1", "g1", "Alice")
	assert.ErrorIs(t, err, dice.ErrNotARoll)
	assert.Empty(t, f.history.Records())
}

func TestRollExpression_InvalidRecordsNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RollExpression(context.Background(), "101#1d20", "u1", "g1", "Alice")
	assert.ErrorIs(t, err, dice.ErrInvalidRepetitionCount)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, f.history.Records())
}

func TestRollExpression_RequiresIDs(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RollExpression(context.Background(), "1d20", "", "g1", "Alice")
	assert.ErrorIs(t, err, rolling.ErrMissingField)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRollExpression_Multi(t *testing.T) {
	f := newFixture(t)
	out, err := f.svc.RollExpression(context.Background(), "3#1d20+4", "u1", "g1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Múltiplas rolagens", out.DisplayTotal())
	assert.Len(t, out.Details, 3)
}

// TestRollInitiative_AliceAndBob covers two users rolling into one guild.
func TestRollInitiative_AliceAndBob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 13, 18)

	alice, err := f.svc.RollInitiative(ctx, 2, "alice", "g1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 15, alice.Roll.Total)
	assert.Equal(t, []string{"1d20:[13]", "Mod:[+2]"}, alice.Roll.Details)

	bob, err := f.svc.RollInitiative(ctx, 0, "bob", "g1", "Bob")
	require.NoError(t, err)
	assert.Equal(t, []initiative.Entry{
		{UserID: "bob", Username: "Bob", Value: 18},
		{UserID: "alice", Username: "Alice", Value: 15},
	}, bob.Ordered)

	list, err := f.svc.ListInitiative(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, bob.Ordered, list)

	recs := f.history.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, dice.KindInitiative, recs[0].Outcome.Kind)
	assert.Equal(t, "1d20+2", recs[0].Expression)
	assert.Equal(t, "1d20", recs[1].Expression)
}

func TestRollInitiative_OversizedModifierRecordsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, mod := range []int{math.MaxInt, math.MinInt, dice.MaxModifier + 1} {
		_, err := f.svc.RollInitiative(ctx, mod, "u1", "g1", "Alice")
		assert.ErrorIs(t, err, dice.ErrInvalidModifier, mod)
		assert.ErrorIs(t, err, apperr.ErrValidation, mod)
	}
	assert.Empty(t, f.history.Records())
	_, err := f.svc.ListInitiative(ctx, "g1")
	assert.ErrorIs(t, err, initiative.ErrEmptyList)
}

func TestRollInitiative_LargestModifierIsStorable(t *testing.T) {
	f := newFixture(t, 20, 1)
	ctx := context.Background()

	hi, err := f.svc.RollInitiative(ctx, dice.MaxModifier, "u1", "g1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 20+dice.MaxModifier, hi.Ordered[0].Value)

	lo, err := f.svc.RollInitiative(ctx, -dice.MaxModifier, "u2", "g1", "Bob")
	require.NoError(t, err)
	assert.Equal(t, 1-dice.MaxModifier, lo.Ordered[1].Value)
}

func TestSetInitiative_OutOfRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, v := range []int{math.MaxInt, -initiative.MaxValue - 1} {
		_, err := f.svc.SetInitiative(ctx, "g1", "u1", "Alice", v)
		assert.ErrorIs(t, err, initiative.ErrInvalidValue, v)
		assert.ErrorIs(t, err, apperr.ErrValidation, v)
	}
	_, err := f.svc.ListInitiative(ctx, "g1")
	assert.ErrorIs(t, err, initiative.ErrEmptyList)
}

func TestInitiativeLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ListInitiative(ctx, "g1")
	assert.ErrorIs(t, err, initiative.ErrEmptyList)

	list, err := f.svc.SetInitiative(ctx, "g1", "u1", "Alice", 12)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, f.svc.RemoveInitiative(ctx, "g1", "nobody"), initiative.ErrNotFound)
	require.NoError(t, f.svc.RemoveInitiative(ctx, "g1", "u1"))

	_, err = f.svc.SetInitiative(ctx, "g1", "u1", "Alice", 12)
	require.NoError(t, err)
	require.NoError(t, f.svc.ClearInitiative(ctx, "g1"))
	_, err = f.svc.ListInitiative(ctx, "g1")
	assert.ErrorIs(t, err, initiative.ErrEmptyList)

	assert.ErrorIs(t, f.svc.ClearInitiative(ctx, ""), apperr.ErrValidation)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 20, 1, 10)

	_, err := f.svc.Stats(ctx, "g1", "u1")
	assert.ErrorIs(t, err, history.ErrNoData)

	for i := 0; i < 3; i++ {
		_, err := f.svc.RollExpression(ctx, "1d20", "u1", "g1", "Alice")
		require.NoError(t, err)
	}

	reports, err := f.svc.Stats(ctx, "g1", "u1")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "NORMAL", reports[0].RollType)
	assert.Equal(t, []history.DieStat{{Die: "d20", Average: 10.33, Count: 3}}, reports[0].PerDie)
}

func TestIsAssisted_TracksEvaluatedFaces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1, 2, 1, 2, 1)

	_, err := f.svc.RollExpression(ctx, "5d20", "u1", "g1", "Alice")
	require.NoError(t, err)
	assert.True(t, f.svc.IsAssisted("g1", "u1", 20))
	assert.False(t, f.svc.IsAssisted("g1", "u2", 20))
}
