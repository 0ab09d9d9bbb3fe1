package dice

import (
	"strconv"
	"strings"
)

// MultiTotalLabel is the display total of a multi-roll. Independent
// repetitions are never summed.
const MultiTotalLabel = "Múltiplas rolagens"

// Face is one generated die face tagged with its die size.
type Face struct {
	Sides int `json:"sides"`
	Value int `json:"value"`
}

// Label returns the die label used in statistics, e.g. "d20".
func (f Face) Label() string {
	return "d" + strconv.Itoa(f.Sides)
}

// Repetition is one independent sub-roll of a multi-roll.
//
// Invariant: Total == sum(Faces) + the expression modifier.
type Repetition struct {
	Faces []int `json:"faces"`
	Total int   `json:"total"`
}

// Outcome is the immutable result of one evaluation.
//
// Invariant: for every kind except Multi, Total is the roll's numeric result.
// For Multi, Total is zero and meaningless; callers read Repetitions or
// Details, and DisplayTotal returns MultiTotalLabel.
type Outcome struct {
	Kind        Kind
	Faces       []Face       // every face generated, in generation order
	Total       int          // numeric total; unused for Multi
	Modifier    int          // signed modifier total
	Details     []string     // human-readable derivation, in input order
	Repetitions []Repetition // Multi only
}

// IsMulti reports whether o has no single numeric total.
func (o Outcome) IsMulti() bool {
	return o.Kind == KindMulti
}

// DisplayTotal returns the total as shown to users.
func (o Outcome) DisplayTotal() string {
	if o.IsMulti() {
		return MultiTotalLabel
	}
	return strconv.Itoa(o.Total)
}

// formatFaces renders faces as "[a, b, c]".
func formatFaces(faces []int) string {
	parts := make([]string, len(faces))
	for i, f := range faces {
		parts[i] = strconv.Itoa(f)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
