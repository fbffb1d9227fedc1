package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/amedina/polypilot/internal/domain"
	"github.com/amedina/polypilot/internal/ports"
	"github.com/amedina/polypilot/internal/registry"
)

// Selector scores fresh candidates and picks the first unseen one.
// Scoring is pure and deterministic: same candidates, same clock, same
// probabilities → same ranking, byte for byte.
type Selector struct {
	estimator ports.ViabilityEstimator // nil = always neutral
	seen      *registry.Registry
	minHours  float64
	maxHours  float64
}

// NewSelector creates a Selector. estimator may be nil.
func NewSelector(estimator ports.ViabilityEstimator, seen *registry.Registry, minHours, maxHours float64) *Selector {
	return &Selector{
		estimator: estimator,
		seen:      seen,
		minHours:  minHours,
		maxHours:  maxHours,
	}
}

// Rank filters candidates to the eligible time window and scores them.
// Invalid or out-of-window events are dropped silently; estimator failures
// degrade to a neutral probability and never block the ranking.
func (s *Selector) Rank(ctx context.Context, events []domain.EventSummary, now time.Time) []domain.ScoreRecord {
	records := make([]domain.ScoreRecord, 0, len(events))
	for _, e := range events {
		if !e.Eligible() {
			continue
		}
		if !e.WithinWindow(now, s.minHours, s.maxHours) {
			continue
		}

		prob := domain.NeutralProbability
		if s.estimator != nil {
			p, ok, err := s.estimator.Estimate(ctx, e.ID)
			if err != nil {
				slog.Debug("viability estimate failed, using neutral", "event", e.ID, "err", err)
			} else if ok {
				prob = p
			}
		}

		records = append(records, domain.ScoreEvent(e, prob, now))
	}
	return domain.RankRecords(records)
}

// Pick walks the ranking top-down and returns the first event not in the
// seen registry. The registry is consulted at pick time, never mutated:
// marking seen is the executor's job, and only after a terminal outcome.
func (s *Selector) Pick(ranked []domain.ScoreRecord, byID map[string]domain.EventSummary) (domain.EventSummary, domain.ScoreRecord, error) {
	for _, rec := range ranked {
		if s.seen.Contains(rec.EventID) {
			continue
		}
		ev, ok := byID[rec.EventID]
		if !ok {
			continue
		}
		return ev, rec, nil
	}
	return domain.EventSummary{}, domain.ScoreRecord{}, ErrNoEligibleEvent
}

// pickMarket returns the first tradable market of the event with at least
// one CLOB token, or ok=false if the event has none. An event without a
// tradable market is skipped WITHOUT marking it seen — the book may heal
// by the next cycle.
func pickMarket(ev domain.EventSummary) (domain.MarketLite, bool) {
	for _, m := range ev.Markets {
		if len(m.ClobTokenIDs) == 0 {
			continue
		}
		if m.Tradable() {
			return m, true
		}
	}
	return domain.MarketLite{}, false
}
