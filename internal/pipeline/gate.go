package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/amedina/polypilot/internal/domain"
	"github.com/amedina/polypilot/internal/ports"
)

const (
	gateProbeAttempts = 3
	gateProbeBackoff  = 2 * time.Second
)

// Gate is the trade readiness check. It runs AFTER selection and BEFORE
// any order leaves the process, and it fails closed: any doubt about
// connectivity or funds blocks the submission.
type Gate struct {
	exchange ports.ExchangeClient
	asset    string
}

// NewGate creates a readiness gate over the given exchange.
func NewGate(exchange ports.ExchangeClient, asset string) *Gate {
	return &Gate{exchange: exchange, asset: asset}
}

// Authorize verifies connectivity and available balance for the intent.
// A nil return authorizes exactly one submission attempt; the verdict is
// not cached across cycles.
//
// Degraded connectivity proceeds with a warning — only Unreachable blocks.
// Insufficient or unverifiable balance always blocks.
func (g *Gate) Authorize(ctx context.Context, intent domain.OrderIntent) error {
	conn, err := g.probeWithRetry(ctx)
	if err != nil {
		return classify(KindCapitalSafety, fmt.Errorf("connectivity: %w", err))
	}
	if conn == domain.ConnUnreachable {
		return classify(KindCapitalSafety, fmt.Errorf("exchange unreachable"))
	}
	if conn == domain.ConnDegraded {
		slog.Warn("exchange degraded, proceeding", "event", intent.EventID)
	}

	balance, err := g.exchange.GetBalance(ctx, g.asset)
	if err != nil {
		// Unverifiable funds block the same as missing funds.
		return classify(KindCapitalSafety, fmt.Errorf("balance check: %w", err))
	}

	required := intent.RequiredBalance()
	if balance < required {
		return classify(KindCapitalSafety,
			fmt.Errorf("insufficient balance: have %.2f, need %.2f", balance, required))
	}

	slog.Debug("readiness verified",
		"event", intent.EventID, "connectivity", conn.String(),
		"balance", balance, "required", required)
	return nil
}

// probeWithRetry retries the connectivity probe with exponential backoff.
// Transient probe failures become Unreachable only after exhausting
// all attempts.
func (g *Gate) probeWithRetry(ctx context.Context) (domain.Connectivity, error) {
	var lastErr error
	for attempt := 0; attempt < gateProbeAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(probeWait(attempt)):
			case <-ctx.Done():
				return domain.ConnUnreachable, ctx.Err()
			}
		}

		conn, err := g.exchange.CheckConnectivity(ctx)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		slog.Debug("connectivity probe failed", "attempt", attempt+1, "err", err)
	}
	return domain.ConnUnreachable, fmt.Errorf("after %d probes: %w", gateProbeAttempts, lastErr)
}

// probeWait es la espera exponencial antes del reintento attempt (1-based).
func probeWait(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt-1))) * gateProbeBackoff
}
