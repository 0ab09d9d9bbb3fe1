package dice

import (
	"fmt"

	"go.uber.org/zap"
)

// Actor identifies who a roll is made for. It scopes streak tracking.
type Actor struct {
	GuildID string
	UserID  string
}

// FaceRecorder observes every generated face. Implementations must not
// influence the Source.
type FaceRecorder interface {
	RecordFace(guildID, userID string, sides, face int)
}

type nopRecorder struct{}

func (nopRecorder) RecordFace(string, string, int, int) {}

// Evaluator turns classified expressions into outcomes.
// All rolls are logged at debug level with expression, kind, faces and total.
type Evaluator struct {
	src    Source
	faces  FaceRecorder
	logger *zap.Logger
}

// NewEvaluator creates an Evaluator that draws faces from src and reports
// each one to faces.
//
// Precondition: src and logger must be non-nil. faces may be nil.
func NewEvaluator(src Source, faces FaceRecorder, logger *zap.Logger) *Evaluator {
	if faces == nil {
		faces = nopRecorder{}
	}
	return &Evaluator{src: src, faces: faces, logger: logger}
}

// Evaluate rolls expr for who.
//
// Precondition: expr should come from Classify; hand-built expressions are
// re-validated.
// Postcondition: Returns an Outcome whose Details preserve term order, or a
// validation error with no face generated.
func (e *Evaluator) Evaluate(expr Expression, who Actor) (Outcome, error) {
	if err := expr.Validate(); err != nil {
		return Outcome{}, err
	}

	var out Outcome
	switch expr.Kind {
	case KindMulti:
		out = e.evalMulti(expr, who)
	case KindAdvantage, KindDisadvantage:
		out = e.evalAdvantage(expr, who)
	case KindSimple:
		out = Outcome{Kind: KindSimple}
		e.evalTerms(&out, expr, who)
	default:
		return Outcome{}, fmt.Errorf("dice: cannot evaluate kind %s", expr.Kind)
	}

	e.logger.Debug("dice roll",
		zap.String("expression", expr.Raw),
		zap.Stringer("kind", out.Kind),
		zap.Int("faces", len(out.Faces)),
		zap.Int("modifier", out.Modifier),
		zap.String("total", out.DisplayTotal()),
		zap.String("guild_id", who.GuildID),
		zap.String("user_id", who.UserID),
	)
	return out, nil
}

// Initiative rolls one d20 plus modifier.
//
// Postcondition: out.Kind == KindInitiative; out.Total == face + modifier;
// out.Details == ["1d20:[face]", "Mod:[±modifier]"]. A modifier outside
// ±MaxModifier returns an error wrapping ErrInvalidModifier and rolls nothing.
func (e *Evaluator) Initiative(who Actor, modifier int) (Outcome, error) {
	if err := CheckModifier(modifier); err != nil {
		return Outcome{}, err
	}
	face := e.roll(who, 20)
	out := Outcome{
		Kind:     KindInitiative,
		Faces:    []Face{{Sides: 20, Value: face}},
		Total:    face + modifier,
		Modifier: modifier,
		Details: []string{
			fmt.Sprintf("1d20:[%d]", face),
			fmt.Sprintf("Mod:[%+d]", modifier),
		},
	}
	e.logger.Debug("initiative roll",
		zap.Int("face", face),
		zap.Int("modifier", modifier),
		zap.Int("total", out.Total),
		zap.String("guild_id", who.GuildID),
		zap.String("user_id", who.UserID),
	)
	return out, nil
}

func (e *Evaluator) roll(who Actor, sides int) int {
	face := rollFace(e.src, sides)
	e.faces.RecordFace(who.GuildID, who.UserID, sides, face)
	return face
}

func (e *Evaluator) rollN(who Actor, count, sides int) ([]int, int) {
	faces := make([]int, count)
	sum := 0
	for i := range faces {
		faces[i] = e.roll(who, sides)
		sum += faces[i]
	}
	return faces, sum
}

// evalTerms rolls every die term of expr into out, then applies the
// consolidated modifier line.
func (e *Evaluator) evalTerms(out *Outcome, expr Expression, who Actor) {
	for _, t := range expr.Terms {
		faces, sum := e.rollN(who, t.Count, t.Sides)
		for _, f := range faces {
			out.Faces = append(out.Faces, Face{Sides: t.Sides, Value: f})
		}
		out.Total += t.Sign * sum
		out.Details = append(out.Details, fmt.Sprintf("🎲 %s: %s = %d", t, formatFaces(faces), sum))
	}

	out.Modifier = expr.Modifier
	out.Total += expr.Modifier
	if expr.Modifier != 0 {
		out.Details = append(out.Details, fmt.Sprintf("🔧 Modificador: %+d", expr.Modifier))
	}
}

func (e *Evaluator) evalAdvantage(expr Expression, who Actor) Outcome {
	r1 := e.roll(who, 20)
	r2 := e.roll(who, 20)
	chosen := max(r1, r2)
	if expr.Kind == KindDisadvantage {
		chosen = min(r1, r2)
	}

	out := Outcome{
		Kind:    expr.Kind,
		Faces:   []Face{{Sides: 20, Value: r1}, {Sides: 20, Value: r2}},
		Total:   chosen,
		Details: []string{fmt.Sprintf("🎲 1d20 (%s): [%d, %d] → %d", expr.Kind, r1, r2, chosen)},
	}
	e.evalTerms(&out, expr, who)
	return out
}

func (e *Evaluator) evalMulti(expr Expression, who Actor) Outcome {
	t := expr.Terms[0]
	out := Outcome{
		Kind:        KindMulti,
		Modifier:    expr.Modifier,
		Repetitions: make([]Repetition, 0, expr.Repeat),
		Details:     make([]string, 0, expr.Repeat),
	}

	for i := 0; i < expr.Repeat; i++ {
		faces, sum := e.rollN(who, t.Count, t.Sides)
		for _, f := range faces {
			out.Faces = append(out.Faces, Face{Sides: t.Sides, Value: f})
		}
		total := sum + expr.Modifier
		out.Repetitions = append(out.Repetitions, Repetition{Faces: faces, Total: total})

		line := fmt.Sprintf("Rolagem %d: 🎲 %dd%d %s", i+1, t.Count, t.Sides, formatFaces(faces))
		if expr.Modifier != 0 {
			line += fmt.Sprintf(" %+d", expr.Modifier)
		}
		line += fmt.Sprintf(" = **%d**", total)
		out.Details = append(out.Details, line)
	}
	return out
}
