package ports

import (
	"context"

	"github.com/amedina/polypilot/internal/domain"
)

// EventCatalog obtiene eventos activos del catálogo (Gamma).
type EventCatalog interface {
	// FetchActiveEvents devuelve hasta limit eventos recientes, filtrados por
	// tags (slugs, labels o ids). Los fallos de red o rate limit se reducen a
	// cero candidatos — nunca son fatales para el ciclo.
	FetchActiveEvents(ctx context.Context, limit int, tags []string) ([]domain.EventSummary, error)
}
