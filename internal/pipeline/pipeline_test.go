package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amedina/polypilot/internal/domain"
	"github.com/amedina/polypilot/internal/pipeline"
	"github.com/amedina/polypilot/internal/registry"
)

// --- mocks ---

type mockCatalog struct {
	events []domain.EventSummary
	err    error
	calls  int
}

func (m *mockCatalog) FetchActiveEvents(_ context.Context, _ int, _ []string) ([]domain.EventSummary, error) {
	m.calls++
	return m.events, m.err
}

type mockExchange struct {
	connectivity domain.Connectivity
	connErr      error
	balance      float64
	balanceErr   error

	submitResult domain.OrderResult
	submitErr    error
	submitCalls  int

	existing      map[string]domain.OrderResult // clientRequestID → orden ya en el exchange
	findErr       error
	statusResult  domain.OrderResult
	statusErr     error
	lastClientID  string
}

func (m *mockExchange) CheckConnectivity(_ context.Context) (domain.Connectivity, error) {
	return m.connectivity, m.connErr
}

func (m *mockExchange) GetBalance(_ context.Context, _ string) (float64, error) {
	return m.balance, m.balanceErr
}

func (m *mockExchange) SubmitOrder(_ context.Context, intent domain.OrderIntent) (domain.OrderResult, error) {
	m.submitCalls++
	m.lastClientID = intent.ClientRequestID
	return m.submitResult, m.submitErr
}

func (m *mockExchange) GetOrderStatus(_ context.Context, _ string) (domain.OrderResult, error) {
	return m.statusResult, m.statusErr
}

func (m *mockExchange) FindOrderByClientID(_ context.Context, clientID string) (domain.OrderResult, bool, error) {
	if m.findErr != nil {
		return domain.OrderResult{}, false, m.findErr
	}
	res, ok := m.existing[clientID]
	return res, ok, nil
}

type mockAudit struct {
	records []domain.AuditRecord
}

func (m *mockAudit) Append(_ context.Context, rec domain.AuditRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *mockAudit) Records(_ context.Context, _, _ time.Time) ([]domain.AuditRecord, error) {
	return m.records, nil
}

func (m *mockAudit) Close() error { return nil }

type mockNotifier struct {
	decisions []string
}

func (m *mockNotifier) NotifyCycle(_ context.Context, decision string, _ []domain.ScoreRecord) error {
	m.decisions = append(m.decisions, decision)
	return nil
}

// --- fixtures ---

func tradableMarket(id string) domain.MarketLite {
	return domain.MarketLite{
		ID:              id,
		EnableOrderBook: true,
		AcceptingOrders: true,
		TickSize:        0.01,
		OrderMinSize:    5,
		ClobTokenIDs:    []string{"tok-" + id},
		BestBid:         0.49,
		BestAsk:         0.50,
		BestBidSize:     100,
		BestAskSize:     100,
	}
}

func candidate(id string, hoursToEnd, liquidity float64) domain.EventSummary {
	end := time.Now().Add(time.Duration(hoursToEnd * float64(time.Hour)))
	return domain.EventSummary{
		ID:              id,
		Slug:            "ev-" + id,
		Title:           "Event " + id,
		Active:          true,
		EnableOrderBook: true,
		EndDate:         end,
		Liquidity:       liquidity,
		Volume:          10_000,
		Markets:         []domain.MarketLite{tradableMarket("m-" + id)},
	}
}

type fixture struct {
	catalog  *mockCatalog
	exchange *mockExchange
	audit    *mockAudit
	notifier *mockNotifier
	seen     *registry.Registry
	pipe     *pipeline.Pipeline
}

func newFixture(events ...domain.EventSummary) *fixture {
	f := &fixture{
		catalog: &mockCatalog{events: events},
		exchange: &mockExchange{
			connectivity: domain.ConnHealthy,
			balance:      1_000,
			submitResult: domain.OrderResult{Status: domain.OrderFilled, ExternalOrderID: "ord-1", RawStatus: "matched"},
		},
		audit:    &mockAudit{},
		notifier: &mockNotifier{},
		seen:     registry.New(registry.NewMemoryStore()),
	}
	f.seen.Load(context.Background())

	selector := pipeline.NewSelector(nil, f.seen, 1, 48)
	gate := pipeline.NewGate(f.exchange, "USDC")
	executor := pipeline.NewExecutor(f.exchange, f.seen, f.audit, 50*time.Millisecond)
	f.pipe = pipeline.New(f.catalog, selector, gate, executor, f.audit, f.notifier, pipeline.Config{
		EventLimit:    100,
		MinHoursToEnd: 1,
		MaxHoursToEnd: 48,
		OrderSize:     10,
	})
	return f
}

// --- cycles ---

func TestRunCycle_ExecutesTopCandidate(t *testing.T) {
	f := newFixture(
		candidate("low", 40, 100),
		candidate("top", 6, 50_000),
	)

	res, err := f.pipe.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pipeline.DecisionExecuted, res.Decision)
	assert.Equal(t, "top", res.EventID)
	assert.Equal(t, domain.OrderFilled, res.Result.Status)
	assert.True(t, f.seen.Contains("top"))
	assert.False(t, f.seen.Contains("low"))
	assert.Equal(t, 1, f.exchange.submitCalls)

	require.Len(t, f.audit.records, 1)
	assert.Equal(t, "confirmed", f.audit.records[0].Decision)
	assert.Equal(t, "top", f.audit.records[0].EventID)
}

func TestRunCycle_SelectionIsDeterministic(t *testing.T) {
	// mismos candidatos en dos pipelines independientes → misma selección
	a := newFixture(candidate("b", 6, 500), candidate("a", 6, 500), candidate("c", 12, 900))
	b := newFixture(candidate("c", 12, 900), candidate("a", 6, 500), candidate("b", 6, 500))

	resA, err := a.pipe.RunCycle(context.Background())
	require.NoError(t, err)
	resB, err := b.pipe.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, resA.EventID, resB.EventID)
}

func TestRunCycle_NoCandidates(t *testing.T) {
	f := newFixture()

	res, err := f.pipe.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.DecisionNoCandidates, res.Decision)
	assert.Equal(t, 0, f.exchange.submitCalls)
}

func TestRunCycle_FetchFailureIsTransient(t *testing.T) {
	f := newFixture()
	f.catalog.err = errors.New("gamma 503")

	res, err := f.pipe.RunCycle(context.Background())
	require.Error(t, err)
	assert.Equal(t, pipeline.DecisionFetchFailed, res.Decision)
	assert.Equal(t, pipeline.KindTransient, pipeline.KindOf(err))
}

func TestRunCycle_AllSeenYieldsNoEligibleEvent(t *testing.T) {
	f := newFixture(candidate("a", 6, 500), candidate("b", 12, 900))
	ctx := context.Background()
	require.NoError(t, f.seen.MarkSeen(ctx, "a"))
	require.NoError(t, f.seen.MarkSeen(ctx, "b"))

	res, err := f.pipe.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, pipeline.DecisionNoEligibleEvent, res.Decision)
	assert.Equal(t, 0, f.exchange.submitCalls)
}

func TestRunCycle_SkipsSeenAndPicksNextUnseen(t *testing.T) {
	f := newFixture(candidate("top", 6, 50_000), candidate("next", 12, 900))
	ctx := context.Background()
	require.NoError(t, f.seen.MarkSeen(ctx, "top"))

	res, err := f.pipe.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, pipeline.DecisionExecuted, res.Decision)
	assert.Equal(t, "next", res.EventID)
}

func TestRunCycle_UntradableMarketSkippedWithoutConsuming(t *testing.T) {
	ev := candidate("illiquid", 6, 50_000)
	ev.Markets[0].BestBidSize = 0 // libro vacío de un lado

	f := newFixture(ev)
	res, err := f.pipe.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pipeline.DecisionNoTradableMarket, res.Decision)
	assert.False(t, f.seen.Contains("illiquid"), "untradable candidate must stay eligible")
	assert.Equal(t, 0, f.exchange.submitCalls)
}

func TestRunCycle_UntradableTopFallsThroughToNext(t *testing.T) {
	top := candidate("top", 6, 50_000)
	top.Markets[0].BestAsk = 0.60 // spread demasiado ancho

	f := newFixture(top, candidate("next", 12, 900))
	res, err := f.pipe.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pipeline.DecisionExecuted, res.Decision)
	assert.Equal(t, "next", res.EventID)
	assert.False(t, f.seen.Contains("top"))
}

func TestRunCycle_OutOfWindowCandidatesIgnored(t *testing.T) {
	f := newFixture(
		candidate("too-soon", 0.25, 50_000),
		candidate("too-far", 100, 50_000),
	)

	res, err := f.pipe.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.DecisionNoCandidates, res.Decision)
}

// --- gate ---

func TestRunCycle_GateBlocksOnInsufficientBalance(t *testing.T) {
	f := newFixture(candidate("top", 6, 50_000))
	f.exchange.balance = 0.50 // necesita 10 × 0.49 = 4.90

	res, err := f.pipe.RunCycle(context.Background())
	require.Error(t, err)

	assert.Equal(t, pipeline.DecisionGateBlocked, res.Decision)
	assert.Equal(t, pipeline.KindCapitalSafety, pipeline.KindOf(err))
	assert.Equal(t, 0, f.exchange.submitCalls, "nothing may reach the exchange")
	assert.False(t, f.seen.Contains("top"), "blocked event stays eligible")

	require.Len(t, f.audit.records, 1)
	assert.Equal(t, pipeline.DecisionGateBlocked, f.audit.records[0].Decision)
}

func TestRunCycle_GateBlocksWhenBalanceUnverifiable(t *testing.T) {
	f := newFixture(candidate("top", 6, 50_000))
	f.exchange.balanceErr = errors.New("rpc down")

	res, err := f.pipe.RunCycle(context.Background())
	require.Error(t, err)
	assert.Equal(t, pipeline.DecisionGateBlocked, res.Decision)
	assert.Equal(t, pipeline.KindCapitalSafety, pipeline.KindOf(err))
	assert.Equal(t, 0, f.exchange.submitCalls)
}

func TestRunCycle_GateBlocksWhenUnreachable(t *testing.T) {
	f := newFixture(candidate("top", 6, 50_000))
	f.exchange.connectivity = domain.ConnUnreachable

	res, err := f.pipe.RunCycle(context.Background())
	require.Error(t, err)
	assert.Equal(t, pipeline.DecisionGateBlocked, res.Decision)
	assert.Equal(t, 0, f.exchange.submitCalls)
	assert.False(t, f.seen.Contains("top"))
}

func TestRunCycle_DegradedConnectivityProceeds(t *testing.T) {
	f := newFixture(candidate("top", 6, 50_000))
	f.exchange.connectivity = domain.ConnDegraded

	res, err := f.pipe.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pipeline.DecisionExecuted, res.Decision)
	assert.Equal(t, 1, f.exchange.submitCalls)
}

// --- idempotency across restarts ---

func TestRunCycle_ClientRequestIDIsStablePerEvent(t *testing.T) {
	// dos procesos independientes que seleccionan el mismo evento derivan
	// el mismo id de idempotencia
	a := newFixture(candidate("top", 6, 50_000))
	b := newFixture(candidate("top", 6, 50_000))

	resA, err := a.pipe.RunCycle(context.Background())
	require.NoError(t, err)
	resB, err := b.pipe.RunCycle(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, resA.Intent.ClientRequestID)
	assert.Equal(t, resA.Intent.ClientRequestID, resB.Intent.ClientRequestID)
}

func TestRunCycle_AdoptsOrphanOrderAfterRestart(t *testing.T) {
	// primer proceso: envía y muere antes de marcar el evento
	first := newFixture(candidate("top", 6, 50_000))
	resFirst, err := first.pipe.RunCycle(context.Background())
	require.NoError(t, err)
	clientID := resFirst.Intent.ClientRequestID

	// segundo proceso: registro vacío (el mark-seen nunca llegó al disco),
	// pero la orden ya vive en el exchange bajo el mismo client id
	second := newFixture(candidate("top", 6, 50_000))
	second.exchange.existing = map[string]domain.OrderResult{
		clientID: {Status: domain.OrderFilled, ExternalOrderID: "ord-orphan"},
	}

	res, err := second.pipe.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pipeline.DecisionExecuted, res.Decision)
	assert.Equal(t, 0, second.exchange.submitCalls, "the orphan order must be adopted, not duplicated")
	assert.Equal(t, "ord-orphan", res.Result.ExternalOrderID)
	assert.True(t, second.seen.Contains("top"))
}

// --- notifier ---

func TestRunCycle_NotifiesEveryOutcome(t *testing.T) {
	f := newFixture(candidate("top", 6, 50_000))

	_, err := f.pipe.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{pipeline.DecisionExecuted}, f.notifier.decisions)

	// segundo ciclo: el único candidato ya está consumido
	_, err = f.pipe.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t,
		[]string{pipeline.DecisionExecuted, pipeline.DecisionNoEligibleEvent},
		f.notifier.decisions)
}
