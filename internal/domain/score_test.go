package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// --- UrgencyScore ---

func TestUrgencyScore_ExpiredEvent(t *testing.T) {
	assert.Equal(t, 0.0, UrgencyScore(0))
	assert.Equal(t, 0.0, UrgencyScore(-5))
}

func TestUrgencyScore_UnderOneHour(t *testing.T) {
	// demasiado cerca del cierre: penalizado pero no cero
	assert.InDelta(t, 0.50, UrgencyScore(0.5), 0.001)
	assert.Less(t, UrgencyScore(0.5), UrgencyScore(2.0))
}

func TestUrgencyScore_PeaksAtSixHours(t *testing.T) {
	assert.InDelta(t, 1.0, UrgencyScore(6), 0.001)
	assert.Greater(t, UrgencyScore(6), UrgencyScore(3))
	assert.Greater(t, UrgencyScore(6), UrgencyScore(12))
}

func TestUrgencyScore_DecaysTowardsWindowEnd(t *testing.T) {
	assert.InDelta(t, 0.80, UrgencyScore(24), 0.001)
	assert.InDelta(t, 0.40, UrgencyScore(48), 0.001)
	assert.Equal(t, 0.20, UrgencyScore(72))
}

// --- DepthScore ---

func TestDepthScore_Bounds(t *testing.T) {
	assert.Equal(t, 0.0, DepthScore(0))
	assert.Equal(t, 0.0, DepthScore(-100))
	assert.InDelta(t, 1.0, DepthScore(10_000), 0.001)
	assert.Equal(t, 1.0, DepthScore(1_000_000))
}

func TestDepthScore_Monotonic(t *testing.T) {
	assert.Less(t, DepthScore(100), DepthScore(1_000))
	assert.Less(t, DepthScore(1_000), DepthScore(9_000))
}

// --- ScoreEvent ---

func scoredEvent(id string, hoursToEnd, liquidity float64) EventSummary {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return EventSummary{
		ID:        id,
		Slug:      "ev-" + id,
		Title:     "Event " + id,
		EndDate:   now.Add(time.Duration(hoursToEnd * float64(time.Hour))),
		Liquidity: liquidity,
		Volume:    5_000,
	}
}

func TestScoreEvent_Deterministic(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := scoredEvent("1", 6, 10_000)

	a := ScoreEvent(e, NeutralProbability, now)
	b := ScoreEvent(e, NeutralProbability, now)
	assert.Equal(t, a, b)
}

func TestScoreEvent_InUnitInterval(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, h := range []float64{0.5, 2, 6, 24, 48} {
		rec := ScoreEvent(scoredEvent("1", h, 50_000), 1.0, now)
		assert.GreaterOrEqual(t, rec.Score, 0.0)
		assert.LessOrEqual(t, rec.Score, 1.0)
	}
}

func TestScoreEvent_ProbabilityScalesUrgencyOnly(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := scoredEvent("1", 6, 10_000)

	low := ScoreEvent(e, 0.1, now)
	high := ScoreEvent(e, 0.9, now)
	assert.Less(t, low.Score, high.Score)

	// con probabilidad 0 la urgencia desaparece pero la liquidez sigue contando
	zero := ScoreEvent(e, 0, now)
	assert.Greater(t, zero.Score, 0.0)
}

func TestScoreEvent_ClampsProbability(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := scoredEvent("1", 6, 10_000)

	assert.Equal(t, ScoreEvent(e, 1.0, now), ScoreEvent(e, 3.0, now))
	assert.Equal(t, ScoreEvent(e, 0.0, now), ScoreEvent(e, -1.0, now))

	// el rationale refleja el valor acotado, no el crudo
	assert.Contains(t, ScoreEvent(e, -1.0, now).Rationale, "prob=0.00")
	assert.Contains(t, ScoreEvent(e, 3.0, now).Rationale, "prob=1.00")
}

// --- RankRecords ---

func TestRankRecords_OrdersByScoreDesc(t *testing.T) {
	ranked := RankRecords([]ScoreRecord{
		{EventID: "a", Score: 0.3},
		{EventID: "b", Score: 0.9},
		{EventID: "c", Score: 0.6},
	})
	assert.Equal(t, []string{"b", "c", "a"}, ids(ranked))
}

func TestRankRecords_TieBreaksByLiquidityThenID(t *testing.T) {
	ranked := RankRecords([]ScoreRecord{
		{EventID: "z", Score: 0.5, Liquidity: 100},
		{EventID: "a", Score: 0.5, Liquidity: 100},
		{EventID: "m", Score: 0.5, Liquidity: 900},
	})
	assert.Equal(t, []string{"m", "a", "z"}, ids(ranked))
}

func TestRankRecords_FullyDeterministic(t *testing.T) {
	in := []ScoreRecord{
		{EventID: "3", Score: 0.5, Liquidity: 10},
		{EventID: "1", Score: 0.5, Liquidity: 10},
		{EventID: "2", Score: 0.7, Liquidity: 5},
	}
	first := ids(RankRecords(append([]ScoreRecord(nil), in...)))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ids(RankRecords(append([]ScoreRecord(nil), in...))))
	}
}

func ids(recs []ScoreRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.EventID
	}
	return out
}
