package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidEvent marca un registro de evento que no pasó la validación.
// El error afecta solo a ese registro — el resto del ciclo continúa.
var ErrInvalidEvent = errors.New("invalid event record")

// EventTag es la representación reducida de un tag de evento.
type EventTag struct {
	ID    string
	Slug  string
	Label string
}

// MarketLite es la vista condensada de un mercado, suficiente para construir
// una orden sin un segundo fetch. Viene hidratada junto al evento.
type MarketLite struct {
	ID              string
	Slug            string
	Question        string
	EndDate         time.Time
	EnableOrderBook bool
	AcceptingOrders bool
	OrderMinSize    float64
	TickSize        float64
	ClobTokenIDs    []string
	BestBid         float64
	BestAsk         float64
	BestBidSize     float64
	BestAskSize     float64
}

// EventSummary es un evento del catálogo, efímero: se obtiene fresco en cada
// ciclo y nunca se persiste.
type EventSummary struct {
	ID              string
	Slug            string
	Title           string
	Active          bool
	Closed          bool
	CreatedAt       time.Time
	StartDate       time.Time
	EndDate         time.Time
	Liquidity       float64
	Volume          float64
	OpenInterest    float64
	EnableOrderBook bool
	Tags            []EventTag
	MarketsCount    int // -1 si es desconocido
	URL             string
	Markets         []MarketLite
}

// Validate comprueba los campos obligatorios. Un evento sin id, slug o título
// no es utilizable y se descarta como registro individual.
func (e EventSummary) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if e.Slug == "" {
		return fmt.Errorf("%w: event %s: missing slug", ErrInvalidEvent, e.ID)
	}
	if e.Title == "" {
		return fmt.Errorf("%w: event %s: missing title", ErrInvalidEvent, e.ID)
	}
	return nil
}

// Eligible devuelve true si el evento puede entrar al scoring:
// activo, no cerrado y con orderbook habilitado.
func (e EventSummary) Eligible() bool {
	return e.Active && !e.Closed && e.EnableOrderBook
}

// HoursToEnd devuelve las horas hasta el cierre del evento respecto a now.
// Negativo si ya terminó, 0 si no hay fecha de cierre.
func (e EventSummary) HoursToEnd(now time.Time) float64 {
	if e.EndDate.IsZero() {
		return 0
	}
	return e.EndDate.Sub(now).Hours()
}

// WithinWindow comprueba que el cierre del evento cae dentro de la ventana
// [minHours, maxHours]. Eventos sin fecha de cierre quedan fuera.
func (e EventSummary) WithinWindow(now time.Time, minHours, maxHours float64) bool {
	if e.EndDate.IsZero() {
		return false
	}
	h := e.HoursToEnd(now)
	return h >= minHours && h <= maxHours
}

// Spread devuelve el spread top-of-book del mercado, o +Inf si el libro
// está vacío o cruzado.
func (m MarketLite) Spread() float64 {
	if m.BestBid <= 0 || m.BestAsk <= 0 || m.BestAsk <= m.BestBid {
		return inf
	}
	return m.BestAsk - m.BestBid
}

// Tradable aplica el sanity check del libro: spread acotado a 2 ticks y
// profundidad mínima a ambos lados.
func (m MarketLite) Tradable() bool {
	if !m.EnableOrderBook || !m.AcceptingOrders {
		return false
	}
	tick := m.TickSize
	if tick <= 0 {
		tick = 0.01
	}
	minSize := m.OrderMinSize
	if minSize <= 0 {
		minSize = 1.0
	}
	if m.Spread() > tick*2 {
		return false
	}
	return m.BestBidSize >= minSize && m.BestAskSize >= minSize
}
