package dice_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/grinmorio/rolling/internal/apperr"
	"github.com/grinmorio/rolling/internal/rolling/dice"
)

func TestClassify_Simple(t *testing.T) {
	expr, err := dice.Classify("1d20+5")
	require.NoError(t, err)
	assert.Equal(t, dice.KindSimple, expr.Kind)
	assert.Equal(t, []dice.Term{{Sign: 1, Count: 1, Sides: 20}}, expr.Terms)
	assert.Equal(t, 5, expr.Modifier)
}

func TestClassify_OmittedCountDefaultsToOne(t *testing.T) {
	expr, err := dice.Classify("d8")
	require.NoError(t, err)
	assert.Equal(t, []dice.Term{{Sign: 1, Count: 1, Sides: 8}}, expr.Terms)
}

func TestClassify_NormalizesCaseAndSpace(t *testing.T) {
	expr, err := dice.Classify("  2D6+3 ")
	require.NoError(t, err)
	assert.Equal(t, "2d6+3", expr.Raw)
	assert.Equal(t, []dice.Term{{Sign: 1, Count: 2, Sides: 6}}, expr.Terms)
	assert.Equal(t, 3, expr.Modifier)
}

// TestClassify_MixedTerms verifies term order is preserved and modifiers are
// consolidated into one signed total.
func TestClassify_MixedTerms(t *testing.T) {
	expr, err := dice.Classify("2d6-1d4+3-1")
	require.NoError(t, err)
	assert.Equal(t, dice.KindSimple, expr.Kind)
	assert.Equal(t, []dice.Term{
		{Sign: 1, Count: 2, Sides: 6},
		{Sign: -1, Count: 1, Sides: 4},
	}, expr.Terms)
	assert.Equal(t, 2, expr.Modifier)
}

func TestClassify_Advantage(t *testing.T) {
	expr, err := dice.Classify("vantagem+3")
	require.NoError(t, err)
	assert.Equal(t, dice.KindAdvantage, expr.Kind)
	assert.Empty(t, expr.Terms)
	assert.Equal(t, 3, expr.Modifier)
}

func TestClassify_Disadvantage(t *testing.T) {
	expr, err := dice.Classify("desvantagem-2")
	require.NoError(t, err)
	assert.Equal(t, dice.KindDisadvantage, expr.Kind)
	assert.Equal(t, -2, expr.Modifier)
}

// TestClassify_DisadvantageWinsWhenBothPresent pins the precedence rule in
// both input orders.
func TestClassify_DisadvantageWinsWhenBothPresent(t *testing.T) {
	for _, in := range []string{"vantagem desvantagem", "desvantagem vantagem", "vantagem+1desvantagem"} {
		expr, err := dice.Classify(in)
		require.NoError(t, err, in)
		assert.Equal(t, dice.KindDisadvantage, expr.Kind, in)
	}
}

func TestClassify_Multi(t *testing.T) {
	expr, err := dice.Classify("3#1d20+4")
	require.NoError(t, err)
	assert.Equal(t, dice.KindMulti, expr.Kind)
	assert.Equal(t, 3, expr.Repeat)
	assert.Equal(t, []dice.Term{{Sign: 1, Count: 1, Sides: 20}}, expr.Terms)
	assert.Equal(t, 4, expr.Modifier)
}

func TestClassify_MultiRepetitionLimits(t *testing.T) {
	for _, in := range []string{"101#1d20", "0#1d20", "99999999999999999999#1d6"} {
		_, err := dice.Classify(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, dice.ErrInvalidRepetitionCount, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, in)
	}

	expr, err := dice.Classify("100#1d20")
	require.NoError(t, err)
	assert.Equal(t, 100, expr.Repeat)
}

func TestClassify_DieLimits(t *testing.T) {
	for _, in := range []string{"1d1001", "101d6", "0d6", "1d0", "3#1d1001", "3#101d6", "2d6+1d99999999999999999999"} {
		_, err := dice.Classify(in)
		require.Error(t, err, in)
		assert.ErrorIs(t, err, dice.ErrInvalidDie, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, in)
	}

	for _, in := range []string{"1d1000", "100d6", "100#100d1000"} {
		_, err := dice.Classify(in)
		assert.NoError(t, err, in)
	}
}

func TestClassify_ModifierLimits(t *testing.T) {
	cases := []struct {
		name, in string
	}{
		{"single token above limit", "1d20+10001"},
		{"single token below limit", "1d20-10001"},
		{"int64 max", "1d20+9223372036854775807"},
		{"beyond int64", "1d20+99999999999999999999"},
		{"sum of two max values", "1d20+9223372036854775807+9223372036854775807"},
		{"running sum above limit", "1d20+6000+6000"},
		{"keyword modifier", "vantagem+20000"},
		{"multi modifier", "2#1d20+9223372036854775807"},
		{"multi above limit", "3#1d6-10001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dice.Classify(tc.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, dice.ErrInvalidModifier)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	for _, in := range []string{"1d20+10000", "1d20-10000", "1d20+6000-6000+4000", "2#1d20+10000"} {
		_, err := dice.Classify(in)
		assert.NoError(t, err, in)
	}
}

func TestExpressionValidate_RejectsOversizedModifier(t *testing.T) {
	expr := dice.Expression{Kind: dice.KindSimple, Terms: []dice.Term{{Sign: 1, Count: 1, Sides: 20}}, Modifier: dice.MaxModifier + 1}
	assert.ErrorIs(t, expr.Validate(), dice.ErrInvalidModifier)

	expr.Modifier = -dice.MaxModifier
	assert.NoError(t, expr.Validate())
}

func TestClassify_NotARoll(t *testing.T) {
	for _, in := range []string{"", "   ", "hello world", "bom dia pessoal", "20", "#"} {
		_, err := dice.Classify(in)
		assert.True(t, errors.Is(err, dice.ErrNotARoll), "input %q should not be a roll, got %v", in, err)
	}
}

// TestClassify_FindsTokensInsideText verifies the lenient API grammar: roll
// tokens embedded in text are still evaluated.
func TestClassify_FindsTokensInsideText(t *testing.T) {
	expr, err := dice.Classify("ataque 1d20+4 com espada")
	require.NoError(t, err)
	assert.Equal(t, []dice.Term{{Sign: 1, Count: 1, Sides: 20}}, expr.Terms)
	assert.Equal(t, 4, expr.Modifier)
}

func TestIsRollCommand(t *testing.T) {
	accepted := []string{"1d20", "1d20+5", "2d6-1d4+3", "vantagem", "desvantagem+2", "3#1d20+4", "3#d20", "  1D20  "}
	for _, in := range accepted {
		assert.True(t, dice.IsRollCommand(in), "%q should be a roll command", in)
	}
	rejected := []string{"", "d20", "ataque 1d20", "1d20 agora", "vantagem+1234", "olá", "iniciativa(+2)"}
	for _, in := range rejected {
		assert.False(t, dice.IsRollCommand(in), "%q should not be a roll command", in)
	}
}

func TestKind_LabelRoundTrip(t *testing.T) {
	for _, k := range []dice.Kind{dice.KindSimple, dice.KindAdvantage, dice.KindDisadvantage, dice.KindMulti, dice.KindInitiative} {
		got, err := dice.ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := dice.ParseKind("CRITICO")
	assert.Error(t, err)
	assert.Equal(t, "INICIATIVA", dice.KindInitiative.String())
}

// TestClassify_SimpleProperty verifies any in-range "NdS±M" classifies to a
// single term with the given parameters.
func TestClassify_SimpleProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, dice.MaxDiceCount).Draw(rt, "count")
		s := rapid.IntRange(1, dice.MaxDieSides).Draw(rt, "sides")
		m := rapid.IntRange(-50, 50).Draw(rt, "modifier")

		in := fmt.Sprintf("%dd%d%+d", n, s, m)
		expr, err := dice.Classify(in)
		require.NoError(rt, err, in)
		assert.Equal(rt, dice.KindSimple, expr.Kind)
		assert.Equal(rt, []dice.Term{{Sign: 1, Count: n, Sides: s}}, expr.Terms)
		assert.Equal(rt, m, expr.Modifier)
	})
}
