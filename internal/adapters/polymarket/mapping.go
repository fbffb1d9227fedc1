package polymarket

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amedina/polypilot/internal/domain"
)

// mapGammaEvent convierte un gammaEvent crudo a domain.EventSummary.
// Devuelve domain.ErrInvalidEvent si faltan campos obligatorios — el error
// afecta solo a ese registro.
func mapGammaEvent(raw gammaEvent) (domain.EventSummary, error) {
	e := domain.EventSummary{
		ID:              raw.ID.String(),
		Slug:            strings.TrimSpace(raw.Slug),
		Title:           strings.TrimSpace(raw.Title),
		Active:          raw.Active,
		Closed:          raw.Closed,
		CreatedAt:       parseTime(raw.CreatedAt),
		StartDate:       parseTime(raw.StartDate),
		EndDate:         parseTime(raw.EndDate),
		Liquidity:       numFloat(raw.Liquidity),
		Volume:          numFloat(raw.Volume),
		OpenInterest:    numFloat(raw.OpenInterest),
		EnableOrderBook: raw.EnableOrderBook,
		Tags:            mapTags(raw.Tags),
		MarketsCount:    -1,
	}
	if e.ID == "" || e.ID == "0" {
		e.ID = ""
	}

	if err := e.Validate(); err != nil {
		return domain.EventSummary{}, err
	}

	e.URL = "https://polymarket.com/event/" + e.Slug

	if raw.Markets != nil {
		e.Markets = make([]domain.MarketLite, 0, len(raw.Markets))
		for _, m := range raw.Markets {
			lite, ok := mapMarketLite(m)
			if !ok {
				continue
			}
			e.Markets = append(e.Markets, lite)
		}
		e.MarketsCount = len(e.Markets)
	}

	return e, nil
}

// mapMarketLite convierte un mercado condensado. Mercados sin id se descartan.
func mapMarketLite(raw gammaMarketLite) (domain.MarketLite, bool) {
	id := raw.ID.String()
	if id == "" || id == "0" {
		return domain.MarketLite{}, false
	}

	accepting := true
	if raw.AcceptingOrders != nil {
		accepting = *raw.AcceptingOrders
	}

	return domain.MarketLite{
		ID:              id,
		Slug:            strings.TrimSpace(raw.Slug),
		Question:        strings.TrimSpace(raw.Question),
		EndDate:         parseTime(raw.EndDate),
		EnableOrderBook: raw.EnableOrderBook,
		AcceptingOrders: accepting,
		OrderMinSize:    numFloat(raw.OrderMinSize),
		TickSize:        numFloat(raw.TickSize),
		ClobTokenIDs:    parseStringList(raw.ClobTokenIDs),
		BestBid:         numFloat(raw.BestBid),
		BestAsk:         numFloat(raw.BestAsk),
		BestBidSize:     numFloat(raw.BestBidSize),
		BestAskSize:     numFloat(raw.BestAskSize),
	}, true
}

// mapTags aplana los tags descartando entradas completamente vacías.
func mapTags(raw []gammaTag) []domain.EventTag {
	if len(raw) == 0 {
		return nil
	}
	tags := make([]domain.EventTag, 0, len(raw))
	for _, t := range raw {
		tag := domain.EventTag{
			ID:    t.ID.String(),
			Slug:  strings.TrimSpace(t.Slug),
			Label: strings.TrimSpace(t.Label),
		}
		if tag.ID == "" && tag.Slug == "" && tag.Label == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

// mapClobOrder convierte una orden del CLOB a domain.OrderResult.
func mapClobOrder(o clobOrder) domain.OrderResult {
	size := parseFloat(o.OriginalSize)
	matched := parseFloat(o.SizeMatched)
	price := parseFloat(o.Price)

	status := domain.OrderAccepted
	upper := strings.ToUpper(o.Status)
	switch {
	case strings.Contains(upper, "MATCHED") || strings.Contains(upper, "FILLED"):
		if matched > 0 && matched < size {
			status = domain.OrderPartiallyFilled
		} else {
			status = domain.OrderFilled
		}
	case strings.Contains(upper, "CANCEL") || strings.Contains(upper, "INVALID") || strings.Contains(upper, "REJECT"):
		status = domain.OrderRejected
	default:
		if matched > 0 && matched < size {
			status = domain.OrderPartiallyFilled
		}
	}

	return domain.OrderResult{
		Status:          status,
		ExternalOrderID: o.ID,
		FilledSize:      matched,
		AvgPrice:        price,
		RawStatus:       o.Status,
	}
}

// parseTime intenta los formatos de fecha que usa Polymarket.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// numFloat convierte un json.Number (o string numérico) a float64, 0 si falla.
func numFloat(n json.Number) float64 {
	if n == "" {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// parseStringList acepta tanto un array JSON de strings como un string que
// contiene el array serializado (Gamma devuelve ambas variantes).
func parseStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanStrings(list)
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		var nested []string
		if err := json.Unmarshal([]byte(encoded), &nested); err == nil {
			return cleanStrings(nested)
		}
		if s := strings.TrimSpace(encoded); s != "" {
			return []string{s}
		}
	}
	return nil
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// fmtURL es un helper para componer URLs con query params ya escapados.
func fmtURL(base, path, query string) string {
	if query == "" {
		return base + path
	}
	return fmt.Sprintf("%s%s?%s", base, path, query)
}
