package ports

import "context"

// ViabilityEstimator es la señal externa opcional de probabilidad de éxito.
type ViabilityEstimator interface {
	// Estimate devuelve la probabilidad [0,1] para un evento, o ok=false si
	// la señal no está disponible. Un error aquí nunca bloquea el scoring.
	Estimate(ctx context.Context, eventID string) (prob float64, ok bool, err error)
}
