package scanner_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/arbscan/internal/application/scanner"
	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/alejandrodnm/arbscan/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockOracle struct {
	mu     sync.Mutex
	prices map[string]domain.RawOraclePrice
	errs   map[string]error
	delay  time.Duration
	calls  []string
}

func (m *mockOracle) FetchPrice(ctx context.Context, symbol string) (domain.RawOraclePrice, error) {
	m.mu.Lock()
	m.calls = append(m.calls, symbol)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.RawOraclePrice{}, &domain.SourceError{Source: domain.SourceOracle, Symbol: symbol, Err: ctx.Err()}
		}
	}
	if err, ok := m.errs[symbol]; ok {
		return domain.RawOraclePrice{}, err
	}
	p, ok := m.prices[symbol]
	if !ok {
		return domain.RawOraclePrice{}, domain.ErrNotFound
	}
	return p, nil
}

type mockPools struct {
	mu    sync.Mutex
	pools map[string]domain.RawPoolPrice
	errs  map[string]error
	quote string
}

func (m *mockPools) FindPoolBySymbols(_ context.Context, target, quote string) (domain.RawPoolPrice, error) {
	m.mu.Lock()
	m.quote = quote
	m.mu.Unlock()
	if err, ok := m.errs[target]; ok {
		return domain.RawPoolPrice{}, err
	}
	p, ok := m.pools[target]
	if !ok {
		return domain.RawPoolPrice{}, domain.ErrNotFound
	}
	return p, nil
}

type mockSink struct {
	saved []domain.AnalysisSnapshot
	err   error
}

func (m *mockSink) PersistSnapshot(_ context.Context, snap domain.AnalysisSnapshot) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, snap)
	return nil
}

type mockNotifier struct {
	notified []domain.AnalysisSnapshot
	err      error
}

func (m *mockNotifier) Notify(_ context.Context, snap domain.AnalysisSnapshot) error {
	m.notified = append(m.notified, snap)
	return m.err
}

// --- helpers ---

func stamp(offset time.Duration) string {
	return domain.FormatTimestamp(time.Now().Add(offset))
}

func rawOracle(symbol string, price float64) domain.RawOraclePrice {
	return domain.RawOraclePrice{Symbol: symbol, Price: price, Timestamp: stamp(0)}
}

func rawPool(target string, price, tvl, volume float64) domain.RawPoolPrice {
	return domain.RawPoolPrice{
		PoolID:              "0xpool-" + target,
		Token0:              domain.PoolToken{Symbol: target, Decimals: 18},
		Token1:              domain.PoolToken{Symbol: "USDC", Decimals: 6},
		Token0Price:         price,
		Token1Price:         1 / price,
		TotalValueLockedUSD: tvl,
		VolumeUSD:           volume,
		FetchedAt:           stamp(0),
	}
}

func testConfig(symbols ...string) scanner.Config {
	return scanner.Config{
		ScanInterval: time.Hour,
		Symbols:      symbols,
		Detector:     scanner.DefaultDetectorConfig(),
		FetchWorkers: 4,
		FetchTimeout: time.Second,
		Once:         true,
	}
}

func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// --- tests ---

func TestScanner_RunOnce_EmitsOpportunityAndPersists(t *testing.T) {
	oracle := &mockOracle{prices: map[string]domain.RawOraclePrice{
		"ETH": rawOracle("ETH", 2000),
	}}
	pools := &mockPools{pools: map[string]domain.RawPoolPrice{
		"ETH": rawPool("ETH", 1900, 15_000_000, 2_000_000),
	}}
	sink := &mockSink{}
	notifier := &mockNotifier{}

	s := scanner.New(testConfig("ETH"), oracle, pools, sink, notifier, nil)
	snap, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Opportunities, 1)
	opp := snap.Opportunities[0]
	assert.Equal(t, domain.SourcePool, opp.BuySource)
	assert.Equal(t, domain.SourceOracle, opp.SellSource)
	assert.InDelta(t, 51.28, opp.EstimatedProfit, 1e-2)
	assert.Equal(t, "USDC", pools.quote)

	assert.Len(t, snap.PriceData.Oracle, 1)
	assert.Len(t, snap.PriceData.Pool, 1)
	assert.Equal(t, []string{"ETH"}, snap.Metadata.TokensAnalyzed)
	assert.Equal(t, []string{"ORACLE", "POOL"}, snap.Metadata.SourcesUsed)
	assert.NotEmpty(t, snap.Metadata.CycleID)
	assert.Equal(t, 1, snap.Summary.TotalOpportunities)

	require.Len(t, sink.saved, 1)
	assert.Equal(t, snap.Metadata.CycleID, sink.saved[0].Metadata.CycleID)
	require.Len(t, notifier.notified, 1)
}

func TestScanner_RunOnce_StalePoolYieldsNothing(t *testing.T) {
	stale := rawPool("ETH", 1900, 15_000_000, 2_000_000)
	stale.FetchedAt = stamp(-400 * time.Second)

	oracle := &mockOracle{prices: map[string]domain.RawOraclePrice{"ETH": rawOracle("ETH", 2000)}}
	pools := &mockPools{pools: map[string]domain.RawPoolPrice{"ETH": stale}}

	snap, err := scanner.New(testConfig("ETH"), oracle, pools, nil, nil, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Opportunities)
	assert.Len(t, snap.PriceData.Pool, 1, "stale prices are still reported as input data")
}

func TestScanner_RunOnce_IsolatesPerSymbolFailures(t *testing.T) {
	oracle := &mockOracle{
		prices: map[string]domain.RawOraclePrice{
			"ETH":  rawOracle("ETH", 2000),
			"LINK": rawOracle("LINK", 15),
			"BAD":  {Symbol: "BAD", Price: -1, Timestamp: stamp(0)},
		},
		errs: map[string]error{
			"BTC": &domain.SourceError{Source: domain.SourceOracle, Symbol: "BTC", Err: errors.New("502")},
		},
	}
	pools := &mockPools{pools: map[string]domain.RawPoolPrice{
		"ETH": rawPool("ETH", 1900, 15_000_000, 2_000_000),
		"BTC": rawPool("BTC", 60_000, 15_000_000, 2_000_000),
	}}
	m := metrics.New()

	s := scanner.New(testConfig("ETH", "BTC", "LINK", "BAD"), oracle, pools, nil, nil, m)
	snap, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Opportunities, 1)
	assert.Equal(t, "ETH", snap.Opportunities[0].BaseSymbol)

	// oracle: BTC error, BAD validación; pool: LINK y BAD sin pool
	assert.Equal(t, domain.RejectedCounts{Validation: 1, NotFound: 2, SourceErrors: 1}, snap.Metadata.Rejected)
	assert.Equal(t, 1.0, counterValue(t, m, "arbscan_opportunities_total"))
}

func TestScanner_RunOnce_NoUsablePricesStillSnapshots(t *testing.T) {
	oracle := &mockOracle{}
	pools := &mockPools{}
	sink := &mockSink{}

	snap, err := scanner.New(testConfig("ETH", "BTC"), oracle, pools, sink, nil, nil).RunOnce(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, snap.Opportunities)
	assert.Empty(t, snap.Opportunities)
	assert.Equal(t, domain.Summary{}, snap.Summary)
	require.Len(t, sink.saved, 1)
}

func TestScanner_RunOnce_SinkErrorKeepsResults(t *testing.T) {
	oracle := &mockOracle{prices: map[string]domain.RawOraclePrice{"ETH": rawOracle("ETH", 2000)}}
	pools := &mockPools{pools: map[string]domain.RawPoolPrice{"ETH": rawPool("ETH", 1900, 15_000_000, 2_000_000)}}
	sink := &mockSink{err: errors.New("disk full")}

	snap, err := scanner.New(testConfig("ETH"), oracle, pools, sink, nil, nil).RunOnce(context.Background())

	var se *domain.SinkError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, snap.Opportunities, 1)
}

func TestScanner_RunOnce_NotifierErrorIsNotFatal(t *testing.T) {
	oracle := &mockOracle{prices: map[string]domain.RawOraclePrice{"ETH": rawOracle("ETH", 2000)}}
	pools := &mockPools{pools: map[string]domain.RawPoolPrice{"ETH": rawPool("ETH", 1900, 15_000_000, 2_000_000)}}
	sink := &mockSink{}
	notifier := &mockNotifier{err: errors.New("tty closed")}

	_, err := scanner.New(testConfig("ETH"), oracle, pools, sink, notifier, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, sink.saved, 1)
}

func TestScanner_RunOnce_CancelledCycleIsDiscarded(t *testing.T) {
	oracle := &mockOracle{
		prices: map[string]domain.RawOraclePrice{"ETH": rawOracle("ETH", 2000)},
		delay:  5 * time.Second,
	}
	pools := &mockPools{pools: map[string]domain.RawPoolPrice{"ETH": rawPool("ETH", 1900, 15_000_000, 2_000_000)}}
	sink := &mockSink{}

	cfg := testConfig("ETH")
	cfg.FetchTimeout = 0

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := scanner.New(cfg, oracle, pools, sink, nil, nil).RunOnce(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, sink.saved)
}

func TestScanner_RunOnce_SourceFailuresDoNotAbortCycle(t *testing.T) {
	boom := errors.New("connection reset")
	oracle := &mockOracle{errs: map[string]error{
		"ETH": &domain.SourceError{Source: domain.SourceOracle, Symbol: "ETH", Err: boom},
	}}
	pools := &mockPools{errs: map[string]error{
		"ETH": &domain.SourceError{Source: domain.SourcePool, Symbol: "ETH", Err: boom},
	}}
	sink := &mockSink{}

	snap, err := scanner.New(testConfig("ETH"), oracle, pools, sink, nil, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Metadata.Rejected.SourceErrors)
	assert.Empty(t, snap.Opportunities)
	assert.Len(t, sink.saved, 1)
}

func TestScanner_RunOnce_TimeoutIsPerSymbolFailure(t *testing.T) {
	oracle := &mockOracle{
		prices: map[string]domain.RawOraclePrice{"ETH": rawOracle("ETH", 2000)},
		delay:  5 * time.Second,
	}
	pools := &mockPools{pools: map[string]domain.RawPoolPrice{"ETH": rawPool("ETH", 1900, 15_000_000, 2_000_000)}}
	sink := &mockSink{}

	cfg := testConfig("ETH")
	cfg.FetchTimeout = 20 * time.Millisecond

	snap, err := scanner.New(cfg, oracle, pools, sink, nil, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.PriceData.Oracle)
	assert.Equal(t, 1, snap.Metadata.Rejected.SourceErrors)
	assert.Len(t, sink.saved, 1)
}

func TestScanner_DeduplicatesSymbols(t *testing.T) {
	oracle := &mockOracle{prices: map[string]domain.RawOraclePrice{"ETH": rawOracle("ETH", 2000)}}
	pools := &mockPools{}

	snap, err := scanner.New(testConfig("ETH", " eth", "ETH"), oracle, pools, nil, nil, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH"}, snap.Metadata.TokensAnalyzed)
	assert.Len(t, oracle.calls, 1)
}

func TestScanner_Run_OnceReturnsAfterOneCycle(t *testing.T) {
	oracle := &mockOracle{}
	pools := &mockPools{}
	sink := &mockSink{}

	err := scanner.New(testConfig("ETH"), oracle, pools, sink, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, sink.saved, 1)
}

func TestScanner_Run_StopsOnCancel(t *testing.T) {
	cfg := testConfig("ETH")
	cfg.Once = false
	cfg.ScanInterval = 10 * time.Millisecond

	sink := &mockSink{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- scanner.New(cfg, &mockOracle{}, &mockPools{}, sink, nil, nil).Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scanner did not stop after cancel")
	}
}
