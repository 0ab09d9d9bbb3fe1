package dice_test

import (
	"math"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/grinmorio/rolling/internal/apperr"
	"github.com/grinmorio/rolling/internal/rolling/dice"
)

// seqSource returns preset faces in order. Each preset value v is the face
// itself, so Intn returns v-1.
type seqSource struct {
	mu    sync.Mutex
	faces []int
}

func (s *seqSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.faces) == 0 {
		panic("seqSource exhausted")
	}
	v := s.faces[0]
	s.faces = s.faces[1:]
	if v < 1 || v > n {
		panic("seqSource face out of range")
	}
	return v - 1
}

type recordedFace struct {
	guildID, userID string
	sides, face     int
}

type captureRecorder struct {
	mu    sync.Mutex
	faces []recordedFace
}

func (c *captureRecorder) RecordFace(guildID, userID string, sides, face int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faces = append(c.faces, recordedFace{guildID, userID, sides, face})
}

var alice = dice.Actor{GuildID: "guild-1", UserID: "user-1"}

func evaluate(t *testing.T, in string, faces ...int) (dice.Outcome, *captureRecorder) {
	t.Helper()
	rec := &captureRecorder{}
	ev := dice.NewEvaluator(&seqSource{faces: faces}, rec, zaptest.NewLogger(t))
	expr, err := dice.Classify(in)
	require.NoError(t, err)
	out, err := ev.Evaluate(expr, alice)
	require.NoError(t, err)
	return out, rec
}

func TestEvaluate_SimpleWithModifier(t *testing.T) {
	out, rec := evaluate(t, "1d20+5", 13)

	assert.Equal(t, dice.KindSimple, out.Kind)
	assert.Equal(t, 18, out.Total)
	assert.Equal(t, 5, out.Modifier)
	assert.Equal(t, []string{"🎲 1d20: [13] = 13", "🔧 Modificador: +5"}, out.Details)
	assert.Equal(t, []dice.Face{{Sides: 20, Value: 13}}, out.Faces)
	assert.Equal(t, []recordedFace{{"guild-1", "user-1", 20, 13}}, rec.faces)
	assert.Equal(t, "18", out.DisplayTotal())
}

func TestEvaluate_NegativeTermAndModifier(t *testing.T) {
	out, _ := evaluate(t, "2d6-1d4-3", 4, 5, 2)

	assert.Equal(t, 4+5-2-3, out.Total)
	assert.Equal(t, []string{
		"🎲 2d6: [4, 5] = 9",
		"🎲 -1d4: [2] = 2",
		"🔧 Modificador: -3",
	}, out.Details)
}

func TestEvaluate_NoModifierLineWhenZero(t *testing.T) {
	out, _ := evaluate(t, "1d6+2-2", 3)
	assert.Equal(t, []string{"🎲 1d6: [3] = 3"}, out.Details)
	assert.Equal(t, 3, out.Total)
}

func TestEvaluate_Advantage(t *testing.T) {
	out, rec := evaluate(t, "vantagem+2", 7, 15)

	assert.Equal(t, dice.KindAdvantage, out.Kind)
	assert.Equal(t, 17, out.Total)
	assert.Equal(t, []string{"🎲 1d20 (VANTAGEM): [7, 15] → 15", "🔧 Modificador: +2"}, out.Details)
	assert.Len(t, rec.faces, 2)
}

func TestEvaluate_Disadvantage(t *testing.T) {
	out, _ := evaluate(t, "desvantagem", 7, 15)

	assert.Equal(t, dice.KindDisadvantage, out.Kind)
	assert.Equal(t, 7, out.Total)
	assert.Equal(t, []string{"🎲 1d20 (DESVANTAGEM): [7, 15] → 7"}, out.Details)
}

func TestEvaluate_AdvantageWithExtraDice(t *testing.T) {
	out, _ := evaluate(t, "vantagem+1d4", 10, 3, 2)

	assert.Equal(t, 12, out.Total)
	assert.Equal(t, []string{"🎲 1d20 (VANTAGEM): [10, 3] → 10", "🎲 1d4: [2] = 2"}, out.Details)
}

func TestEvaluate_Multi(t *testing.T) {
	out, rec := evaluate(t, "3#1d20+4", 1, 10, 20)

	assert.True(t, out.IsMulti())
	assert.Equal(t, dice.MultiTotalLabel, out.DisplayTotal())
	assert.Equal(t, "Múltiplas rolagens", out.DisplayTotal())
	assert.Equal(t, []string{
		"Rolagem 1: 🎲 1d20 [1] +4 = **5**",
		"Rolagem 2: 🎲 1d20 [10] +4 = **14**",
		"Rolagem 3: 🎲 1d20 [20] +4 = **24**",
	}, out.Details)
	assert.Equal(t, []dice.Repetition{
		{Faces: []int{1}, Total: 5},
		{Faces: []int{10}, Total: 14},
		{Faces: []int{20}, Total: 24},
	}, out.Repetitions)
	assert.Len(t, rec.faces, 3)
}

func TestEvaluate_RejectsInvalidHandBuiltExpression(t *testing.T) {
	rec := &captureRecorder{}
	ev := dice.NewEvaluator(dice.NewCryptoSource(), rec, zap.NewNop())

	_, err := ev.Evaluate(dice.Expression{Kind: dice.KindSimple, Terms: []dice.Term{{Sign: 1, Count: 1, Sides: 5000}}}, alice)
	assert.ErrorIs(t, err, dice.ErrInvalidDie)

	_, err = ev.Evaluate(dice.Expression{Kind: dice.KindMulti, Repeat: 101, Terms: []dice.Term{{Sign: 1, Count: 1, Sides: 20}}}, alice)
	assert.ErrorIs(t, err, dice.ErrInvalidRepetitionCount)

	assert.Empty(t, rec.faces, "no face may be generated for a rejected expression")
}

func TestEvaluate_NilRecorderIsAllowed(t *testing.T) {
	ev := dice.NewEvaluator(&seqSource{faces: []int{4}}, nil, zap.NewNop())
	expr, err := dice.Classify("1d4")
	require.NoError(t, err)
	out, err := ev.Evaluate(expr, alice)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Total)
}

func TestInitiative(t *testing.T) {
	rec := &captureRecorder{}
	ev := dice.NewEvaluator(&seqSource{faces: []int{12}}, rec, zaptest.NewLogger(t))

	out, err := ev.Initiative(alice, 3)
	require.NoError(t, err)
	assert.Equal(t, dice.KindInitiative, out.Kind)
	assert.Equal(t, 15, out.Total)
	assert.Equal(t, []string{"1d20:[12]", "Mod:[+3]"}, out.Details)
	assert.Len(t, rec.faces, 1)

	ev = dice.NewEvaluator(&seqSource{faces: []int{2}}, nil, zaptest.NewLogger(t))
	out, err = ev.Initiative(alice, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, []string{"1d20:[2]", "Mod:[-1]"}, out.Details)
}

func TestInitiative_RejectsOversizedModifier(t *testing.T) {
	rec := &captureRecorder{}
	ev := dice.NewEvaluator(dice.NewCryptoSource(), rec, zaptest.NewLogger(t))

	for _, mod := range []int{math.MaxInt, math.MinInt, dice.MaxModifier + 1, -dice.MaxModifier - 1} {
		_, err := ev.Initiative(alice, mod)
		assert.ErrorIs(t, err, dice.ErrInvalidModifier, mod)
		assert.ErrorIs(t, err, apperr.ErrValidation, mod)
	}
	assert.Empty(t, rec.faces)

	out, err := ev.Initiative(alice, dice.MaxModifier)
	require.NoError(t, err)
	assert.Equal(t, out.Faces[0].Value+dice.MaxModifier, out.Total)
}

func TestEvaluate_HandBuiltOversizedModifierRollsNothing(t *testing.T) {
	rec := &captureRecorder{}
	ev := dice.NewEvaluator(dice.NewCryptoSource(), rec, zaptest.NewLogger(t))

	expr := dice.Expression{Kind: dice.KindMulti, Terms: []dice.Term{{Sign: 1, Count: 1, Sides: 20}}, Repeat: 2, Modifier: math.MaxInt}
	_, err := ev.Evaluate(expr, alice)
	assert.ErrorIs(t, err, dice.ErrInvalidModifier)
	assert.Empty(t, rec.faces)
}

var simpleLine = regexp.MustCompile(`^🎲 1d20: \[([1-9]|1[0-9]|20)\] = \d+$`)

// TestEvaluate_ExampleScenario checks "1d20+5" with real randomness.
func TestEvaluate_ExampleScenario(t *testing.T) {
	ev := dice.NewEvaluator(dice.NewCryptoSource(), nil, zap.NewNop())
	expr, err := dice.Classify("1d20+5")
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		out, err := ev.Evaluate(expr, alice)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, out.Total, 6)
		assert.LessOrEqual(t, out.Total, 25)
		require.Len(t, out.Details, 2)
		assert.Regexp(t, simpleLine, out.Details[0])
		assert.Equal(t, "🔧 Modificador: +5", out.Details[1])
	}
}

// TestEvaluate_SimpleProperty verifies total == sum(faces) + M and every face
// is within [1, S] for any "NdS+M".
func TestEvaluate_SimpleProperty(t *testing.T) {
	ev := dice.NewEvaluator(dice.NewCryptoSource(), nil, zap.NewNop())
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(rt, "count")
		s := rapid.IntRange(1, dice.MaxDieSides).Draw(rt, "sides")
		m := rapid.IntRange(-100, 100).Draw(rt, "modifier")

		out, err := ev.Evaluate(dice.Expression{
			Kind:     dice.KindSimple,
			Terms:    []dice.Term{{Sign: 1, Count: n, Sides: s}},
			Modifier: m,
		}, alice)
		require.NoError(rt, err)
		require.Len(rt, out.Faces, n)

		sum := 0
		for _, f := range out.Faces {
			assert.Equal(rt, s, f.Sides)
			assert.GreaterOrEqual(rt, f.Value, 1)
			assert.LessOrEqual(rt, f.Value, s)
			sum += f.Value
		}
		assert.Equal(rt, sum+m, out.Total)
	})
}

// TestEvaluate_AdvantageProperty verifies max/min selection over two d20.
func TestEvaluate_AdvantageProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r1 := rapid.IntRange(1, 20).Draw(rt, "r1")
		r2 := rapid.IntRange(1, 20).Draw(rt, "r2")
		disadvantage := rapid.Bool().Draw(rt, "disadvantage")

		kind := dice.KindAdvantage
		want := max(r1, r2)
		if disadvantage {
			kind = dice.KindDisadvantage
			want = min(r1, r2)
		}

		ev := dice.NewEvaluator(&seqSource{faces: []int{r1, r2}}, nil, zap.NewNop())
		out, err := ev.Evaluate(dice.Expression{Kind: kind}, alice)
		require.NoError(rt, err)
		assert.Equal(rt, want, out.Total)
	})
}

// TestEvaluate_MultiProperty verifies K detail lines, each a valid SIMPLE
// result, and no numeric total.
func TestEvaluate_MultiProperty(t *testing.T) {
	ev := dice.NewEvaluator(dice.NewCryptoSource(), nil, zap.NewNop())
	rapid.Check(t, func(rt *rapid.T) {
		k := rapid.IntRange(1, dice.MaxRepetitions).Draw(rt, "repeat")
		n := rapid.IntRange(1, 5).Draw(rt, "count")
		s := rapid.IntRange(1, 100).Draw(rt, "sides")
		m := rapid.IntRange(-10, 10).Draw(rt, "modifier")

		out, err := ev.Evaluate(dice.Expression{
			Kind:     dice.KindMulti,
			Repeat:   k,
			Terms:    []dice.Term{{Sign: 1, Count: n, Sides: s}},
			Modifier: m,
		}, alice)
		require.NoError(rt, err)
		require.Len(rt, out.Details, k)
		require.Len(rt, out.Repetitions, k)
		assert.Equal(rt, dice.MultiTotalLabel, out.DisplayTotal())

		for i, rep := range out.Repetitions {
			require.Len(rt, rep.Faces, n)
			sum := 0
			for _, f := range rep.Faces {
				assert.GreaterOrEqual(rt, f, 1)
				assert.LessOrEqual(rt, f, s)
				sum += f
			}
			assert.Equal(rt, sum+m, rep.Total)
			assert.True(rt, strings.HasPrefix(out.Details[i], "Rolagem "))
		}
	})
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { src.Intn(0) })
}
