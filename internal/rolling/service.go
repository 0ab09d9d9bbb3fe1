// Package rolling is the in-process facade over the dice engine, the streak
// tracker, the initiative table and roll history. Transports call Service and
// never reach the components directly.
package rolling

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/grinmorio/rolling/internal/apperr"
	"github.com/grinmorio/rolling/internal/rolling/dice"
	"github.com/grinmorio/rolling/internal/rolling/helper"
	"github.com/grinmorio/rolling/internal/rolling/history"
	"github.com/grinmorio/rolling/internal/rolling/initiative"
)

// ErrMissingField is returned when a required identifier is empty.
var ErrMissingField = apperr.New(apperr.CodeValidation, "missing required field")

// HistorySink receives roll records. history.Writer satisfies it.
type HistorySink interface {
	Submit(rec history.Record) bool
}

// InitiativeRoll is the result of RollInitiative.
type InitiativeRoll struct {
	Roll    dice.Outcome
	Ordered []initiative.Entry
}

// Deps are the collaborators of a Service.
type Deps struct {
	Evaluator  *dice.Evaluator
	Tracker    *helper.Tracker
	Initiative *initiative.Table
	History    HistorySink
	Stats      *history.Reporter
	Logger     *zap.Logger
}

// Service implements every rolling operation.
type Service struct {
	eval    *dice.Evaluator
	tracker *helper.Tracker
	table   *initiative.Table
	sink    HistorySink
	stats   *history.Reporter
	logger  *zap.Logger
}

// NewService creates a Service.
//
// Precondition: every field of d must be non-nil.
func NewService(d Deps) *Service {
	return &Service{
		eval:    d.Evaluator,
		tracker: d.Tracker,
		table:   d.Initiative,
		sink:    d.History,
		stats:   d.Stats,
		logger:  d.Logger,
	}
}

// RollExpression classifies and evaluates expression for the user, then
// records it in history.
//
// Postcondition: Returns the Outcome, dice.ErrNotARoll for non-roll text, or a
// validation error. Nothing is recorded on error.
func (s *Service) RollExpression(ctx context.Context, expression, userID, guildID, username string) (dice.Outcome, error) {
	if err := requireIDs(userID, guildID); err != nil {
		return dice.Outcome{}, err
	}
	expr, err := dice.Classify(expression)
	if err != nil {
		return dice.Outcome{}, err
	}
	out, err := s.eval.Evaluate(expr, dice.Actor{GuildID: guildID, UserID: userID})
	if err != nil {
		return dice.Outcome{}, err
	}
	s.record(history.NewRecord(guildID, userID, username, expr.Raw, out))
	return out, nil
}

// RollInitiative rolls 1d20+modifier, records it, and stores the total as the
// user's initiative.
//
// Postcondition: Ordered is the guild's list after the upsert, sorted by
// value descending. A modifier outside ±dice.MaxModifier is a validation
// error and records nothing. A store failure is returned as a persistence
// error.
func (s *Service) RollInitiative(ctx context.Context, modifier int, userID, guildID, username string) (InitiativeRoll, error) {
	if err := requireIDs(userID, guildID); err != nil {
		return InitiativeRoll{}, err
	}
	out, err := s.eval.Initiative(dice.Actor{GuildID: guildID, UserID: userID}, modifier)
	if err != nil {
		return InitiativeRoll{}, err
	}
	s.record(history.NewRecord(guildID, userID, username, initiativeExpression(modifier), out))

	ordered, err := s.table.Set(ctx, guildID, userID, username, out.Total)
	if err != nil {
		return InitiativeRoll{}, err
	}
	return InitiativeRoll{Roll: out, Ordered: ordered}, nil
}

// ListInitiative returns the guild's sorted initiative list, or
// initiative.ErrEmptyList.
func (s *Service) ListInitiative(ctx context.Context, guildID string) ([]initiative.Entry, error) {
	if guildID == "" {
		return nil, apperr.Wrap(apperr.CodeValidation, "guildId é obrigatório", ErrMissingField)
	}
	return s.table.List(ctx, guildID)
}

// ClearInitiative removes every entry of the guild.
func (s *Service) ClearInitiative(ctx context.Context, guildID string) error {
	if guildID == "" {
		return apperr.Wrap(apperr.CodeValidation, "guildId é obrigatório", ErrMissingField)
	}
	return s.table.Clear(ctx, guildID)
}

// SetInitiative stores value as the user's initiative without rolling. A value
// outside ±initiative.MaxValue returns initiative.ErrInvalidValue.
func (s *Service) SetInitiative(ctx context.Context, guildID, userID, username string, value int) ([]initiative.Entry, error) {
	if err := requireIDs(userID, guildID); err != nil {
		return nil, err
	}
	return s.table.Set(ctx, guildID, userID, username, value)
}

// RemoveInitiative deletes the user's entry, or returns initiative.ErrNotFound.
func (s *Service) RemoveInitiative(ctx context.Context, guildID, userID string) error {
	if err := requireIDs(userID, guildID); err != nil {
		return err
	}
	return s.table.Remove(ctx, guildID, userID)
}

// Stats returns the user's per-roll-type face averages, or history.ErrNoData.
func (s *Service) Stats(ctx context.Context, guildID, userID string) ([]history.Report, error) {
	if err := requireIDs(userID, guildID); err != nil {
		return nil, err
	}
	return s.stats.Stats(ctx, guildID, userID)
}

// IsAssisted reports the streak flag for (guildID, userID, sides).
func (s *Service) IsAssisted(guildID, userID string, sides int) bool {
	return s.tracker.IsAssisted(guildID, userID, sides)
}

func (s *Service) record(rec history.Record) {
	if !s.sink.Submit(rec) {
		s.logger.Warn("roll not recorded in history",
			zap.String("guild_id", rec.GuildID),
			zap.String("user_id", rec.UserID),
			zap.String("expression", rec.Expression),
		)
	}
}

func requireIDs(userID, guildID string) error {
	var missing []string
	if userID == "" {
		missing = append(missing, "userId")
	}
	if guildID == "" {
		missing = append(missing, "guildId")
	}
	if len(missing) > 0 {
		return apperr.Wrap(apperr.CodeValidation, "Campos obrigatórios ausentes: "+strings.Join(missing, ", "), ErrMissingField)
	}
	return nil
}

func initiativeExpression(modifier int) string {
	if modifier == 0 {
		return "1d20"
	}
	return fmt.Sprintf("1d20%+d", modifier)
}
