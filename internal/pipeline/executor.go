package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amedina/polypilot/internal/domain"
	"github.com/amedina/polypilot/internal/ports"
	"github.com/amedina/polypilot/internal/registry"
)

const statusPollInterval = 2 * time.Second

// Executor drives one order submission through its state machine:
//
//	IDLE → SELECTED → READINESS_VERIFIED → SUBMITTED →
//	    {CONFIRMED | REJECTED | TIMED_OUT} → TERMINAL
//
// Invariants it owns:
//   - at most one order submission attempt per cycle
//   - after any ambiguous failure, reconcile by ClientRequestID before
//     ever resubmitting
//   - the event is marked seen exactly once, and only on a terminal
//     outcome, before the audit record is written
type Executor struct {
	exchange      ports.ExchangeClient
	seen          *registry.Registry
	audit         ports.AuditLog
	submitTimeout time.Duration

	state domain.ExecState
}

// NewExecutor creates an executor in IDLE.
func NewExecutor(exchange ports.ExchangeClient, seen *registry.Registry, audit ports.AuditLog, submitTimeout time.Duration) *Executor {
	return &Executor{
		exchange:      exchange,
		seen:          seen,
		audit:         audit,
		submitTimeout: submitTimeout,
		state:         domain.ExecIdle,
	}
}

// State returns the current machine state. For tests and logging.
func (x *Executor) State() domain.ExecState { return x.state }

func (x *Executor) transition(to domain.ExecState, intent domain.OrderIntent) {
	slog.Debug("executor transition",
		"from", string(x.state), "to", string(to),
		"event", intent.EventID, "client_id", intent.ClientRequestID)
	x.state = to
}

// Execute runs the intent to a terminal outcome. The returned error is
// classified; a non-nil error with a terminal result still means the event
// was consumed (marked seen and audited).
func (x *Executor) Execute(ctx context.Context, intent domain.OrderIntent) (domain.OrderResult, error) {
	x.state = domain.ExecIdle
	x.transition(domain.ExecSelected, intent)
	x.transition(domain.ExecReadinessVerified, intent)

	// Reconcile first: a previous run may have died after submitting, and
	// the client request id is derived from the event, so an orphan order
	// is findable here. If the lookup itself fails we cannot rule out an
	// orphan — submitting anyway could duplicate it, so the cycle aborts
	// without consuming the event.
	res, found, err := x.exchange.FindOrderByClientID(ctx, intent.ClientRequestID)
	if err != nil {
		return domain.OrderResult{}, classify(KindTransient,
			fmt.Errorf("pre-submit reconcile: %w", err))
	}
	if found {
		slog.Info("adopting existing order for client id",
			"client_id", intent.ClientRequestID, "order", res.ExternalOrderID)
		x.transition(domain.ExecSubmitted, intent)
		return x.settle(ctx, intent, res)
	}

	x.transition(domain.ExecSubmitted, intent)

	submitCtx, cancel := context.WithTimeout(ctx, x.submitTimeout)
	res, err = x.exchange.SubmitOrder(submitCtx, intent)
	cancel()

	if err != nil {
		if res.Status == domain.OrderRejected {
			// Explicit rejection from the exchange: terminal, consumed.
			x.transition(domain.ExecRejected, intent)
			ferr := x.finalize(ctx, intent, res, "rejected")
			if ferr != nil {
				return res, ferr
			}
			return res, classify(KindValidation, err)
		}
		// The submission may or may not have reached the exchange.
		// Never resubmit blindly — reconcile by client id.
		return x.reconcileAmbiguous(ctx, intent, err)
	}

	return x.settle(ctx, intent, res)
}

// settle polls an accepted order until its status is terminal or the
// submit timeout elapses.
func (x *Executor) settle(ctx context.Context, intent domain.OrderIntent, res domain.OrderResult) (domain.OrderResult, error) {
	if res.Status.Terminal() && res.Status != domain.OrderAccepted {
		return x.confirm(ctx, intent, res)
	}
	// ACCEPTED is terminal for consumption purposes: the order is live on
	// the book and capital is committed. Poll briefly in case it fills or
	// rejects right away, then settle on what we have.
	deadline := time.Now().Add(x.submitTimeout)
	current := res

	for time.Now().Before(deadline) {
		if current.ExternalOrderID == "" {
			break
		}
		select {
		case <-time.After(statusPollInterval):
		case <-ctx.Done():
			return x.timeout(context.WithoutCancel(ctx), intent, current)
		}

		polled, err := x.exchange.GetOrderStatus(ctx, current.ExternalOrderID)
		if err != nil {
			slog.Debug("status poll failed", "order", current.ExternalOrderID, "err", err)
			continue
		}
		current = polled
		if current.Status != domain.OrderAccepted {
			break
		}
	}
	return x.confirm(ctx, intent, current)
}

// reconcileAmbiguous resolves a submission whose fate is unknown.
func (x *Executor) reconcileAmbiguous(ctx context.Context, intent domain.OrderIntent, submitErr error) (domain.OrderResult, error) {
	res, found, err := x.exchange.FindOrderByClientID(ctx, intent.ClientRequestID)
	if err != nil {
		// Could not determine whether the order exists. Treat the cycle
		// as timed out and consume the event: risking a duplicate order
		// is worse than skipping a candidate.
		x.transition(domain.ExecTimedOut, intent)
		timedOut := domain.OrderResult{Status: domain.OrderFailed, RawStatus: "reconcile-failed"}
		if ferr := x.finalize(ctx, intent, timedOut, "timed_out"); ferr != nil {
			return timedOut, ferr
		}
		return timedOut, classify(KindAmbiguous,
			fmt.Errorf("submit failed and reconcile failed: %w", submitErr))
	}

	if found {
		slog.Info("ambiguous submit resolved: order exists",
			"client_id", intent.ClientRequestID, "order", res.ExternalOrderID)
		return x.settle(ctx, intent, res)
	}

	// The order never reached the exchange. Nothing was committed.
	x.transition(domain.ExecRejected, intent)
	failed := domain.OrderResult{Status: domain.OrderFailed, RawStatus: "never-submitted"}
	if ferr := x.finalize(ctx, intent, failed, "failed"); ferr != nil {
		return failed, ferr
	}
	return failed, classify(KindTransient, submitErr)
}

// timeout settles a cycle whose polling was cut short by context
// cancellation. The order may still be live on the book.
func (x *Executor) timeout(ctx context.Context, intent domain.OrderIntent, res domain.OrderResult) (domain.OrderResult, error) {
	x.transition(domain.ExecTimedOut, intent)
	if ferr := x.finalize(ctx, intent, res, "timed_out"); ferr != nil {
		return res, ferr
	}
	return res, classify(KindAmbiguous, fmt.Errorf("order status unresolved at shutdown"))
}

// confirm maps the final order status onto the machine and consumes the event.
func (x *Executor) confirm(ctx context.Context, intent domain.OrderIntent, res domain.OrderResult) (domain.OrderResult, error) {
	decision := "confirmed"
	switch res.Status {
	case domain.OrderRejected:
		x.transition(domain.ExecRejected, intent)
		decision = "rejected"
	case domain.OrderFailed:
		x.transition(domain.ExecRejected, intent)
		decision = "failed"
	default:
		x.transition(domain.ExecConfirmed, intent)
	}
	if err := x.finalize(ctx, intent, res, decision); err != nil {
		return res, err
	}
	return res, nil
}

// finalize is the single path to TERMINAL: mark the event seen, then
// append the audit record. Mark-seen comes first — if the process dies
// between the two, a consumed event missing its audit row is recoverable;
// an audited event that gets reselected is not.
func (x *Executor) finalize(ctx context.Context, intent domain.OrderIntent, res domain.OrderResult, decision string) error {
	if err := x.seen.MarkSeen(ctx, intent.EventID); err != nil {
		x.transition(domain.ExecTerminal, intent)
		return classify(KindTransient, fmt.Errorf("mark seen: %w", err))
	}

	rec := domain.AuditRecord{
		Timestamp: time.Now(),
		EventID:   intent.EventID,
		Decision:  decision,
		Intent:    intent,
		Result:    res,
	}
	if err := x.audit.Append(ctx, rec); err != nil {
		slog.Error("audit append failed", "event", intent.EventID, "err", err)
	}

	x.transition(domain.ExecTerminal, intent)
	slog.Info("execution terminal",
		"event", intent.EventID, "decision", decision,
		"status", string(res.Status), "order", res.ExternalOrderID)
	return nil
}
