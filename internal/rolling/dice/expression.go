// Package dice implements the roll-expression grammar, the dice evaluator and
// the outcome types for the rolling service.
package dice

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/grinmorio/rolling/internal/apperr"
)

// Limits applied to every expression before any die is rolled.
const (
	MaxRepetitions = 100
	MaxDiceCount   = 100
	MaxDieSides    = 1000
	// MaxModifier bounds each flat modifier and their sum, in absolute value.
	MaxModifier = 10000
)

// Kind is the classified shape of a roll.
type Kind int

const (
	KindSimple Kind = iota
	KindAdvantage
	KindDisadvantage
	KindMulti
	// KindInitiative is never produced by Classify; it marks the composite
	// roll-and-register initiative operation in roll history.
	KindInitiative
)

var kindLabels = map[Kind]string{
	KindSimple:       "NORMAL",
	KindAdvantage:    "VANTAGEM",
	KindDisadvantage: "DESVANTAGEM",
	KindMulti:        "MÚLTIPLA",
	KindInitiative:   "INICIATIVA",
}

// String returns the persisted label of k.
func (k Kind) String() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(label string) (Kind, error) {
	for k, l := range kindLabels {
		if l == label {
			return k, nil
		}
	}
	return 0, fmt.Errorf("dice: unknown roll kind %q", label)
}

// ErrNotARoll is returned by Classify when the input contains no roll token.
// Callers treat it as "ignore silently", not as a failure.
var ErrNotARoll = errors.New("dice: not a roll expression")

// Validation sentinels. Returned errors wrap these, so compare with errors.Is.
var (
	ErrInvalidDie             = apperr.New(apperr.CodeValidation, "invalid die term")
	ErrInvalidRepetitionCount = apperr.New(apperr.CodeValidation, "invalid repetition count")
	ErrInvalidModifier        = apperr.New(apperr.CodeValidation, "invalid modifier")
)

// Term is one signed die group, e.g. "-2d6" is {Sign: -1, Count: 2, Sides: 6}.
type Term struct {
	Sign  int
	Count int
	Sides int
}

// String renders t the way detail lines show it: "2d6" or "-2d6".
func (t Term) String() string {
	if t.Sign < 0 {
		return fmt.Sprintf("-%dd%d", t.Count, t.Sides)
	}
	return fmt.Sprintf("%dd%d", t.Count, t.Sides)
}

// Validate checks the per-term limits.
func (t Term) Validate() error {
	if t.Sides < 1 || t.Sides > MaxDieSides || t.Count < 1 || t.Count > MaxDiceCount {
		return apperr.Wrap(apperr.CodeValidation, "Rolagem inválida: "+t.String(), ErrInvalidDie)
	}
	return nil
}

// Expression is a classified roll expression.
//
// Invariant (after Classify): Kind is one of Simple, Advantage, Disadvantage
// or Multi; every Term satisfies Term.Validate; for Multi, len(Terms) == 1
// and 1 <= Repeat <= MaxRepetitions.
type Expression struct {
	Raw      string // normalized input
	Kind     Kind
	Terms    []Term // die groups in input order
	Modifier int    // sum of all flat modifiers
	Repeat   int    // Multi only
}

// Validate re-checks the invariants of a hand-built Expression.
func (e Expression) Validate() error {
	if e.Kind == KindMulti {
		if e.Repeat < 1 || e.Repeat > MaxRepetitions {
			return repetitionError(strconv.Itoa(e.Repeat))
		}
		if len(e.Terms) != 1 {
			return apperr.Wrap(apperr.CodeValidation, "Rolagem múltipla exige exatamente um dado", ErrInvalidDie)
		}
	}
	for _, t := range e.Terms {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return CheckModifier(e.Modifier)
}

// CheckModifier returns a validation error wrapping ErrInvalidModifier when
// |mod| exceeds MaxModifier.
func CheckModifier(mod int) error {
	if mod < -MaxModifier || mod > MaxModifier {
		return modifierError(fmt.Sprintf("%+d", mod))
	}
	return nil
}

func modifierError(raw string) error {
	return apperr.Wrap(apperr.CodeValidation,
		fmt.Sprintf("Modificador inválido: %s (limite ±%d).", raw, MaxModifier),
		ErrInvalidModifier)
}

var multiPattern = regexp.MustCompile(`^(\d+)#(\d*)d(\d+)([+-]\d+)?$`)

// Classify parses a free-form roll expression.
//
// The multi-roll shape "<N>#<count>d<sides>[±mod]" is tried first. Otherwise
// the input is tokenized and classified as Simple, Advantage or
// Disadvantage. When both "vantagem" and "desvantagem" appear, Disadvantage
// wins.
//
// Postcondition: Returns a valid Expression, ErrNotARoll when the input holds
// no roll token, or a validation error wrapping ErrInvalidDie,
// ErrInvalidRepetitionCount or ErrInvalidModifier.
func Classify(input string) (Expression, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return Expression{}, ErrNotARoll
	}

	if m := multiPattern.FindStringSubmatch(s); m != nil {
		return classifyMulti(s, m)
	}

	tokens, err := tokenize(s)
	if err != nil {
		return Expression{}, err
	}
	if len(tokens) == 0 {
		return Expression{}, ErrNotARoll
	}

	expr := Expression{Raw: s, Kind: KindSimple}
	for _, tok := range tokens {
		switch tok.kind {
		case tokenKeyword:
			if tok.value == "desvantagem" {
				expr.Kind = KindDisadvantage
			} else if expr.Kind != KindDisadvantage {
				expr.Kind = KindAdvantage
			}
		case tokenDice:
			term, err := parseTerm(tok.value)
			if err != nil {
				return Expression{}, err
			}
			expr.Terms = append(expr.Terms, term)
		case tokenModifier:
			mod, err := strconv.Atoi(tok.value)
			if err != nil || CheckModifier(mod) != nil {
				return Expression{}, modifierError(tok.value)
			}
			expr.Modifier += mod
			if err := CheckModifier(expr.Modifier); err != nil {
				return Expression{}, err
			}
		}
	}
	return expr, nil
}

func classifyMulti(s string, m []string) (Expression, error) {
	repeat, err := strconv.Atoi(m[1])
	if err != nil || repeat < 1 || repeat > MaxRepetitions {
		return Expression{}, repetitionError(m[1])
	}

	term, err := parseTerm(m[2] + "d" + m[3])
	if err != nil {
		return Expression{}, err
	}

	mod := 0
	if m[4] != "" {
		mod, err = strconv.Atoi(m[4])
		if err != nil || CheckModifier(mod) != nil {
			return Expression{}, modifierError(m[4])
		}
	}

	return Expression{
		Raw:      s,
		Kind:     KindMulti,
		Terms:    []Term{term},
		Modifier: mod,
		Repeat:   repeat,
	}, nil
}

// parseTerm parses "[+-]<count?>d<sides>". An omitted count means 1; an
// explicit zero count is rejected.
func parseTerm(raw string) (Term, error) {
	invalid := apperr.Wrap(apperr.CodeValidation, "Rolagem inválida: "+raw, ErrInvalidDie)

	s := raw
	sign := 1
	switch {
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	countStr, sidesStr, ok := strings.Cut(s, "d")
	if !ok {
		return Term{}, invalid
	}

	count := 1
	if countStr != "" {
		n, err := strconv.Atoi(countStr)
		if err != nil {
			return Term{}, invalid
		}
		count = n
	}
	sides, err := strconv.Atoi(sidesStr)
	if err != nil {
		return Term{}, invalid
	}

	t := Term{Sign: sign, Count: count, Sides: sides}
	if err := t.Validate(); err != nil {
		return Term{}, invalid
	}
	return t, nil
}

func repetitionError(n string) error {
	return apperr.Wrap(apperr.CodeValidation,
		fmt.Sprintf("O número de rolagens múltiplas deve estar entre 1 e %d (recebido %s).", MaxRepetitions, n),
		ErrInvalidRepetitionCount)
}

var commandPattern = regexp.MustCompile(`^(\d+#\d*d\d+([+-]\d+)?|((vantagem|desvantagem)([+-]\d{1,3})?|[+-]?\d+d\d+)([+-]\d{1,3}|[+-]\d+d\d+)*)$`)

// IsRollCommand reports whether an entire chat message is a roll command.
// It is stricter than Classify so ordinary chat that merely mentions "d6"
// is never answered.
func IsRollCommand(content string) bool {
	return commandPattern.MatchString(strings.ToLower(strings.TrimSpace(content)))
}
