package polymarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amedina/polypilot/internal/domain"
)

func TestMapGammaEvent_Complete(t *testing.T) {
	raw := gammaEvent{
		ID:              "12345",
		Slug:            "will-it-rain",
		Title:           "Will it rain tomorrow?",
		Active:          true,
		EndDate:         "2026-03-02T12:00:00Z",
		Liquidity:       "15000.5",
		Volume:          "80000",
		EnableOrderBook: true,
		Tags:            []gammaTag{{ID: "2", Slug: "weather", Label: "Weather"}},
		Markets: []gammaMarketLite{{
			ID:           "m-1",
			ClobTokenIDs: json.RawMessage(`["tok-yes","tok-no"]`),
			BestBid:      "0.48",
			BestAsk:      "0.49",
		}},
	}

	ev, err := mapGammaEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, "12345", ev.ID)
	assert.Equal(t, "https://polymarket.com/event/will-it-rain", ev.URL)
	assert.InDelta(t, 15000.5, ev.Liquidity, 0.001)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), ev.EndDate)
	require.Len(t, ev.Tags, 1)
	assert.Equal(t, "weather", ev.Tags[0].Slug)
	require.Len(t, ev.Markets, 1)
	assert.Equal(t, []string{"tok-yes", "tok-no"}, ev.Markets[0].ClobTokenIDs)
	assert.Equal(t, 1, ev.MarketsCount)
}

func TestMapGammaEvent_MissingRequiredFields(t *testing.T) {
	_, err := mapGammaEvent(gammaEvent{Slug: "s", Title: "t"})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, err = mapGammaEvent(gammaEvent{ID: "1", Title: "t"})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, err = mapGammaEvent(gammaEvent{ID: "1", Slug: "s"})
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}

func TestMapGammaEvent_MarketsAbsentMeansUnknownCount(t *testing.T) {
	ev, err := mapGammaEvent(gammaEvent{ID: "1", Slug: "s", Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, -1, ev.MarketsCount)
}

func TestParseTime_Layouts(t *testing.T) {
	cases := map[string]time.Time{
		"2026-03-02T12:00:00Z":      time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		"2026-03-02T12:00:00.000Z":  time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC),
		"2026-03-02":                time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		"2026-03-02T12:00:00+01:00": time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		assert.True(t, parseTime(in).Equal(want), in)
	}

	assert.True(t, parseTime("").IsZero())
	assert.True(t, parseTime("not-a-date").IsZero())
}

func TestParseStringList_Variants(t *testing.T) {
	// array JSON normal
	assert.Equal(t, []string{"a", "b"},
		parseStringList(json.RawMessage(`["a","b"]`)))

	// array serializado dentro de un string (variante de Gamma)
	assert.Equal(t, []string{"a", "b"},
		parseStringList(json.RawMessage(`"[\"a\",\"b\"]"`)))

	// string simple
	assert.Equal(t, []string{"solo"},
		parseStringList(json.RawMessage(`"solo"`)))

	assert.Nil(t, parseStringList(nil))
	assert.Nil(t, parseStringList(json.RawMessage(`""`)))
	assert.Nil(t, parseStringList(json.RawMessage(`["",""]`)))
}

func TestMapClobOrder_Statuses(t *testing.T) {
	full := mapClobOrder(clobOrder{
		ID: "o1", Status: "matched", OriginalSize: "10", SizeMatched: "10", Price: "0.49",
	})
	assert.Equal(t, domain.OrderFilled, full.Status)
	assert.InDelta(t, 10.0, full.FilledSize, 1e-9)

	partial := mapClobOrder(clobOrder{
		ID: "o2", Status: "matched", OriginalSize: "10", SizeMatched: "4",
	})
	assert.Equal(t, domain.OrderPartiallyFilled, partial.Status)

	cancelled := mapClobOrder(clobOrder{ID: "o3", Status: "cancelled"})
	assert.Equal(t, domain.OrderRejected, cancelled.Status)

	live := mapClobOrder(clobOrder{ID: "o4", Status: "live", OriginalSize: "10", SizeMatched: "0"})
	assert.Equal(t, domain.OrderAccepted, live.Status)

	livePartial := mapClobOrder(clobOrder{ID: "o5", Status: "live", OriginalSize: "10", SizeMatched: "3"})
	assert.Equal(t, domain.OrderPartiallyFilled, livePartial.Status)
}

func TestMatchesAnyTag(t *testing.T) {
	ev := domain.EventSummary{Tags: []domain.EventTag{
		{ID: "7", Slug: "politics", Label: "Politics"},
	}}

	assert.True(t, matchesAnyTag(ev, []string{"politics"}))
	assert.True(t, matchesAnyTag(ev, []string{"POLITICS"}))
	assert.True(t, matchesAnyTag(ev, []string{"7"}))
	assert.False(t, matchesAnyTag(ev, []string{"sports"}))
	assert.False(t, matchesAnyTag(ev, nil))
}
