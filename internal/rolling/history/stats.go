package history

import (
	"cmp"
	"context"
	"math"
	"slices"
	"strconv"

	"github.com/grinmorio/rolling/internal/apperr"
	"github.com/grinmorio/rolling/internal/rolling/dice"
)

// ErrNoData is returned by Stats when the user has no recorded faces.
var ErrNoData = apperr.New(apperr.CodeNotFound, "Nenhuma estatística encontrada para este utilizador.")

// DieStat is the average face of one die size.
type DieStat struct {
	Die     string  `json:"dado" yaml:"dado"`
	Average float64 `json:"media" yaml:"media"`
	Count   int64   `json:"totalRolagens" yaml:"totalRolagens"`
}

// Report groups a user's die statistics under one roll type.
//
// Invariant: TotalRolls == sum of PerDie[i].Count.
type Report struct {
	RollType   string    `json:"tipo" yaml:"tipo"`
	TotalRolls int64     `json:"totalRolagens" yaml:"totalRolagens"`
	PerDie     []DieStat `json:"estatisticas" yaml:"estatisticas"`
}

// Reporter answers statistics queries from a Store.
type Reporter struct {
	store Store
}

// NewReporter creates a Reporter.
//
// Precondition: store must be non-nil.
func NewReporter(store Store) *Reporter {
	return &Reporter{store: store}
}

// Stats returns the reports for (guildID, userID).
//
// Postcondition: returns ErrNoData when nothing is recorded, or a
// persistence error when the store fails.
func (r *Reporter) Stats(ctx context.Context, guildID, userID string) ([]Report, error) {
	aggs, err := r.store.Aggregates(ctx, guildID, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodePersistence, "loading statistics", err)
	}
	reports := BuildReports(aggs)
	if len(reports) == 0 {
		return nil, ErrNoData
	}
	return reports, nil
}

// BuildReports folds aggregates into per-kind reports sorted by roll type
// label, each with dice sorted by size. Aggregates with the same (kind,
// sides) are merged; empty ones are skipped.
func BuildReports(aggs []Aggregate) []Report {
	type dieKey struct {
		kind  dice.Kind
		sides int
	}
	merged := make(map[dieKey]*Aggregate)
	for _, a := range aggs {
		if a.Count <= 0 {
			continue
		}
		k := dieKey{a.Kind, a.Sides}
		if m, ok := merged[k]; ok {
			m.Sum += a.Sum
			m.Count += a.Count
			continue
		}
		cp := a
		merged[k] = &cp
	}

	byKind := make(map[dice.Kind][]*Aggregate)
	for _, a := range merged {
		byKind[a.Kind] = append(byKind[a.Kind], a)
	}

	reports := make([]Report, 0, len(byKind))
	for kind, list := range byKind {
		slices.SortFunc(list, func(a, b *Aggregate) int { return cmp.Compare(a.Sides, b.Sides) })
		rep := Report{RollType: kind.String(), PerDie: make([]DieStat, 0, len(list))}
		for _, a := range list {
			rep.PerDie = append(rep.PerDie, DieStat{
				Die:     "d" + strconv.Itoa(a.Sides),
				Average: round2(float64(a.Sum) / float64(a.Count)),
				Count:   a.Count,
			})
			rep.TotalRolls += a.Count
		}
		reports = append(reports, rep)
	}
	slices.SortFunc(reports, func(a, b Report) int { return cmp.Compare(a.RollType, b.RollType) })
	return reports
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
