package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amedina/polypilot/internal/domain"
	"github.com/amedina/polypilot/internal/ports"
)

// Decision is the outcome label of one cycle. It goes verbatim into the
// audit log and the console notifier.
const (
	DecisionExecuted         = "executed"
	DecisionNoCandidates     = "no_candidates"
	DecisionNoEligibleEvent  = "no_eligible_event"
	DecisionNoTradableMarket = "no_tradable_market"
	DecisionGateBlocked      = "gate_blocked"
	DecisionExecutionFailed  = "execution_failed"
	DecisionFetchFailed      = "fetch_failed"
)

// Config holds the per-cycle knobs of the pipeline.
type Config struct {
	EventLimit    int
	Tags          []string
	MinHoursToEnd float64
	MaxHoursToEnd float64
	OrderSize     float64
}

// CycleResult is everything one cycle produced.
type CycleResult struct {
	Decision string
	EventID  string
	Intent   domain.OrderIntent
	Result   domain.OrderResult
	Ranked   []domain.ScoreRecord
}

// Pipeline wires catalog → scoring → selection → gate → execution.
// One instance runs cycles sequentially; it is not safe for concurrent use.
type Pipeline struct {
	catalog  ports.EventCatalog
	selector *Selector
	gate     *Gate
	executor *Executor
	audit    ports.AuditLog
	notifier ports.Notifier
	cfg      Config

	now func() time.Time
}

// New creates a Pipeline. notifier may be nil.
func New(catalog ports.EventCatalog, selector *Selector, gate *Gate, executor *Executor, audit ports.AuditLog, notifier ports.Notifier, cfg Config) *Pipeline {
	return &Pipeline{
		catalog:  catalog,
		selector: selector,
		gate:     gate,
		executor: executor,
		audit:    audit,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// RunCycle executes one full decision cycle. Cycles are independent: every
// run refetches candidates and re-verifies readiness; nothing carries over
// except the seen registry.
//
// The returned error is nil for all "clean skip" outcomes — only fetch
// failures and execution-path failures surface as errors.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleResult, error) {
	started := p.now()
	res := CycleResult{Decision: DecisionNoCandidates}

	events, err := p.catalog.FetchActiveEvents(ctx, p.cfg.EventLimit, p.cfg.Tags)
	if err != nil {
		res.Decision = DecisionFetchFailed
		slog.Error("candidate fetch failed", "err", err)
		p.notify(ctx, res)
		return res, classify(KindTransient, err)
	}
	if len(events) == 0 {
		slog.Info("cycle complete: no candidates")
		p.notify(ctx, res)
		return res, nil
	}

	ranked := p.selector.Rank(ctx, events, started)
	res.Ranked = ranked
	if len(ranked) == 0 {
		slog.Info("cycle complete: no candidates in the eligible window",
			"fetched", len(events))
		p.notify(ctx, res)
		return res, nil
	}

	byID := make(map[string]domain.EventSummary, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	// Walk the ranking: the first unseen event with a tradable market wins.
	// Unseen events without one are skipped for THIS cycle only — they are
	// not marked seen and stay eligible.
	ev, rec, market, err := p.pickExecutable(ranked, byID)
	if err != nil {
		if errors.Is(err, ErrNoEligibleEvent) {
			res.Decision = DecisionNoEligibleEvent
			slog.Info("cycle complete: all ranked candidates already seen",
				"ranked", len(ranked))
		} else {
			res.Decision = DecisionNoTradableMarket
			slog.Info("cycle complete: no unseen candidate with a tradable market",
				"ranked", len(ranked))
		}
		p.notify(ctx, res)
		return res, nil
	}
	res.EventID = ev.ID

	intent := domain.OrderIntent{
		EventID:         ev.ID,
		MarketID:        market.ID,
		TokenID:         market.ClobTokenIDs[0],
		Side:            "BUY",
		Size:            p.cfg.OrderSize,
		LimitPrice:      market.BestBid,
		ClientRequestID: clientRequestID(ev.ID),
	}
	res.Intent = intent

	slog.Info("candidate selected",
		"event", ev.ID, "title", ev.Title, "score", rec.Score,
		"market", market.ID, "limit_price", intent.LimitPrice)

	if err := p.gate.Authorize(ctx, intent); err != nil {
		// Fail closed, do NOT consume: the event stays eligible for the
		// next cycle, after funds or connectivity recover.
		res.Decision = DecisionGateBlocked
		slog.Warn("readiness gate blocked submission", "event", ev.ID, "err", err)
		p.auditSkip(ctx, intent, DecisionGateBlocked, err.Error())
		p.notify(ctx, res)
		return res, err
	}

	result, err := p.executor.Execute(ctx, intent)
	res.Result = result
	if err != nil {
		res.Decision = DecisionExecutionFailed
		p.notify(ctx, res)
		return res, err
	}

	res.Decision = DecisionExecuted
	p.notify(ctx, res)
	return res, nil
}

// clientIDNamespace fija el espacio de nombres de los ids de idempotencia.
var clientIDNamespace = uuid.MustParse("9c1e4f62-0b3a-4d75-a1c8-5f2b7d903e14")

// clientRequestID deriva el id de idempotencia del evento de forma
// determinista: un proceso que muere tras enviar y vuelve a seleccionar el
// mismo evento produce el MISMO id, y la reconciliación pre-submit del
// executor encuentra la orden huérfana en vez de duplicarla.
func clientRequestID(eventID string) string {
	return uuid.NewSHA1(clientIDNamespace, []byte(eventID)).String()
}

// pickExecutable finds the first unseen ranked event that also has a
// tradable market. errNoTradable distinguishes "all seen" from "unseen
// but untradable".
var errNoTradableMarket = errors.New("no tradable market among unseen candidates")

func (p *Pipeline) pickExecutable(ranked []domain.ScoreRecord, byID map[string]domain.EventSummary) (domain.EventSummary, domain.ScoreRecord, domain.MarketLite, error) {
	sawUnseen := false
	remaining := ranked
	for len(remaining) > 0 {
		ev, rec, err := p.selector.Pick(remaining, byID)
		if err != nil {
			if sawUnseen {
				return domain.EventSummary{}, domain.ScoreRecord{}, domain.MarketLite{}, errNoTradableMarket
			}
			return domain.EventSummary{}, domain.ScoreRecord{}, domain.MarketLite{}, err
		}
		sawUnseen = true

		if m, ok := pickMarket(ev); ok {
			return ev, rec, m, nil
		}
		slog.Debug("skipping candidate without tradable market", "event", ev.ID)
		remaining = after(remaining, ev.ID)
	}
	if sawUnseen {
		return domain.EventSummary{}, domain.ScoreRecord{}, domain.MarketLite{}, errNoTradableMarket
	}
	return domain.EventSummary{}, domain.ScoreRecord{}, domain.MarketLite{}, ErrNoEligibleEvent
}

// after returns the suffix of ranked strictly after the record with the
// given event id.
func after(ranked []domain.ScoreRecord, eventID string) []domain.ScoreRecord {
	for i, r := range ranked {
		if r.EventID == eventID {
			return ranked[i+1:]
		}
	}
	return nil
}

// auditSkip records a non-execution decision. Failures here are logged,
// never fatal: a skip that goes unrecorded costs nothing.
func (p *Pipeline) auditSkip(ctx context.Context, intent domain.OrderIntent, decision, detail string) {
	rec := domain.AuditRecord{
		Timestamp: p.now(),
		EventID:   intent.EventID,
		Decision:  decision,
		Intent:    intent,
		Detail:    detail,
	}
	if err := p.audit.Append(ctx, rec); err != nil {
		slog.Error("audit append failed", "event", intent.EventID, "err", err)
	}
}

func (p *Pipeline) notify(ctx context.Context, res CycleResult) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.NotifyCycle(ctx, res.Decision, res.Ranked); err != nil {
		slog.Debug("notify failed", "err", err)
	}
}
