package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/amedina/polypilot/internal/domain"
)

const gammaPageSize = 100

// Catalog implementa ports.EventCatalog sobre la Gamma API.
type Catalog struct {
	client *Client
}

// NewCatalog crea el catálogo de eventos sobre el client dado.
func NewCatalog(client *Client) *Catalog {
	return &Catalog{client: client}
}

// FetchActiveEvents descarga eventos activos paginando por offset, más
// recientes primero, hasta limit. Los tags se resuelven a ids contra el
// catálogo /tags; los que no resuelven se aplican como filtro en cliente.
//
// Si la consulta filtrada por tag no devuelve nada, se hace una pasada sin
// filtro de servidor y se filtra todo en cliente — Gamma a veces no indexa
// tags recientes.
func (g *Catalog) FetchActiveEvents(ctx context.Context, limit int, tags []string) ([]domain.EventSummary, error) {
	if limit <= 0 {
		limit = gammaPageSize
	}

	tagIDs, clientFilters := g.resolveTags(ctx, tags)

	events, err := g.fetchPages(ctx, limit, tagIDs, clientFilters)
	if err != nil {
		return nil, err
	}

	if len(events) == 0 && len(tagIDs) > 0 {
		slog.Debug("tag-filtered query empty, retrying unfiltered", "tags", tags)
		events, err = g.fetchPages(ctx, limit, nil, append(clientFilters, tags...))
		if err != nil {
			return nil, err
		}
	}

	return events, nil
}

// fetchPages pagina /events acumulando eventos válidos, deduplicados por id.
func (g *Catalog) fetchPages(ctx context.Context, limit int, tagIDs, clientFilters []string) ([]domain.EventSummary, error) {
	seen := make(map[string]struct{}, limit)
	events := make([]domain.EventSummary, 0, limit)
	invalid := 0

	for offset := 0; len(events) < limit; offset += gammaPageSize {
		page, err := g.fetchPage(ctx, offset, tagIDs)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, raw := range page {
			ev, err := mapGammaEvent(raw)
			if err != nil {
				invalid++
				slog.Debug("skipping invalid event record", "error", err)
				continue
			}
			if _, dup := seen[ev.ID]; dup {
				continue
			}
			if len(clientFilters) > 0 && !matchesAnyTag(ev, clientFilters) {
				continue
			}
			seen[ev.ID] = struct{}{}
			events = append(events, ev)
			if len(events) >= limit {
				break
			}
		}

		if len(page) < gammaPageSize {
			break
		}
	}

	if invalid > 0 {
		slog.Warn("dropped invalid event records", "count", invalid)
	}
	return events, nil
}

func (g *Catalog) fetchPage(ctx context.Context, offset int, tagIDs []string) (gammaEventsResponse, error) {
	q := url.Values{}
	q.Set("order", "createdAt")
	q.Set("ascending", "false")
	q.Set("closed", "false")
	q.Set("limit", strconv.Itoa(gammaPageSize))
	q.Set("offset", strconv.Itoa(offset))
	for _, id := range tagIDs {
		q.Add("tag_id", id)
	}

	var page gammaEventsResponse
	u := fmtURL(g.client.gammaBase, "/events", q.Encode())
	if err := g.client.get(ctx, g.client.gammaLimiter, u, &page); err != nil {
		return nil, fmt.Errorf("polymarket.Catalog: fetch events offset %d: %w", offset, err)
	}
	return page, nil
}

// resolveTags separa los tokens en ids numéricos (van directos al query) y
// el resto, que se intenta resolver por slug o label contra GET /tags.
// Lo que no resuelve vuelve como filtro de cliente.
func (g *Catalog) resolveTags(ctx context.Context, tags []string) (tagIDs, clientFilters []string) {
	var unresolved []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, err := strconv.Atoi(t); err == nil {
			tagIDs = append(tagIDs, t)
			continue
		}
		unresolved = append(unresolved, t)
	}
	if len(unresolved) == 0 {
		return tagIDs, nil
	}

	catalog, err := g.fetchTagCatalog(ctx)
	if err != nil {
		slog.Warn("tag catalog unavailable, filtering client-side", "error", err)
		return tagIDs, unresolved
	}

	for _, t := range unresolved {
		if id, ok := catalog[normalizeTag(t)]; ok {
			tagIDs = append(tagIDs, id)
		} else {
			clientFilters = append(clientFilters, t)
		}
	}
	return tagIDs, clientFilters
}

// fetchTagCatalog descarga /tags y lo indexa por slug y label normalizados.
func (g *Catalog) fetchTagCatalog(ctx context.Context) (map[string]string, error) {
	index := make(map[string]string)
	for offset := 0; ; offset += gammaPageSize {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(gammaPageSize))
		q.Set("offset", strconv.Itoa(offset))

		var page gammaTagsResponse
		u := fmtURL(g.client.gammaBase, "/tags", q.Encode())
		if err := g.client.get(ctx, g.client.gammaLimiter, u, &page); err != nil {
			return nil, fmt.Errorf("fetch tags offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}
		for _, t := range page {
			id := t.ID.String()
			if id == "" {
				continue
			}
			if s := normalizeTag(t.Slug); s != "" {
				index[s] = id
			}
			if l := normalizeTag(t.Label); l != "" {
				index[l] = id
			}
		}
		if len(page) < gammaPageSize {
			break
		}
	}
	return index, nil
}

// matchesAnyTag comprueba si el evento lleva alguno de los tags pedidos,
// comparando contra slug y label normalizados.
func matchesAnyTag(ev domain.EventSummary, wanted []string) bool {
	for _, w := range wanted {
		nw := normalizeTag(w)
		if nw == "" {
			continue
		}
		for _, t := range ev.Tags {
			if normalizeTag(t.Slug) == nw || normalizeTag(t.Label) == nw || t.ID == w {
				return true
			}
		}
	}
	return false
}

func normalizeTag(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
