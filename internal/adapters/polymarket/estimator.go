package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"golang.org/x/time/rate"
)

// HTTPEstimator consulta un servicio externo de probabilidad de viabilidad.
// Implementa ports.ViabilityEstimator. Cualquier fallo se reduce a ok=false:
// la señal es opcional y nunca bloquea el scoring.
type HTTPEstimator struct {
	client  *Client
	baseURL string
	limiter *rate.Limiter
}

// NewHTTPEstimator crea el estimador sobre el URL dado.
func NewHTTPEstimator(client *Client, baseURL string) *HTTPEstimator {
	return &HTTPEstimator{
		client:  client,
		baseURL: baseURL,
		limiter: rate.NewLimiter(10, 5),
	}
}

// Estimate pide la probabilidad para un evento. Devuelve ok=false si el
// servicio falla o la respuesta no trae una probabilidad válida.
func (h *HTTPEstimator) Estimate(ctx context.Context, eventID string) (float64, bool, error) {
	q := url.Values{}
	q.Set("event_id", eventID)

	var resp estimateResponse
	u := fmtURL(h.baseURL, "/estimate", q.Encode())
	if err := h.client.get(ctx, h.limiter, u, &resp); err != nil {
		slog.Debug("estimator unavailable", "event", eventID, "error", err)
		return 0, false, fmt.Errorf("polymarket.HTTPEstimator: %w", err)
	}

	prob, err := resp.Probability.Float64()
	if err != nil || prob < 0 || prob > 1 {
		return 0, false, nil
	}
	return prob, true, nil
}
