package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/alejandrodnm/arbscan/internal/metrics"
	"github.com/alejandrodnm/arbscan/internal/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config contiene la configuración del scanner.
type Config struct {
	ScanInterval time.Duration
	Symbols      []string
	Detector     DetectorConfig
	FetchWorkers int           // goroutines por fuente (0 = NumCPU*2)
	FetchTimeout time.Duration // límite por llamada de red
	Once         bool
}

// Scanner orquesta los ciclos: fetch de ambas fuentes → normalización →
// detección → notificación → persistencia. Ningún estado pasa de un ciclo al siguiente.
type Scanner struct {
	cfg      Config
	oracle   ports.OracleProvider
	pools    ports.PoolProvider
	sink     ports.SnapshotSink
	notifier ports.Notifier
	metrics  *metrics.Metrics
	detector *Detector
	symbols  []string
	tokens   []string

	now   func() time.Time
	newID func() string
}

// New crea un Scanner con todas las dependencias inyectadas.
// sink, notifier y m pueden ser nil.
func New(
	cfg Config,
	oracle ports.OracleProvider,
	pools ports.PoolProvider,
	sink ports.SnapshotSink,
	notifier ports.Notifier,
	m *metrics.Metrics,
) *Scanner {
	symbols, tokens := dedupSymbols(cfg.Symbols)
	return &Scanner{
		cfg:      cfg,
		oracle:   oracle,
		pools:    pools,
		sink:     sink,
		notifier: notifier,
		metrics:  m,
		detector: NewDetector(cfg.Detector),
		symbols:  symbols,
		tokens:   tokens,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run ejecuta ciclos cada ScanInterval hasta que el contexto se cancele.
// Con cfg.Once ejecuta un solo ciclo y devuelve su error.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner starting",
		"interval", s.cfg.ScanInterval,
		"symbols", s.tokens,
		"once", s.cfg.Once,
		"workers", s.cfg.FetchWorkers,
	)

	_, err := s.RunOnce(ctx)
	if s.cfg.Once {
		return err
	}
	s.logCycleError(ctx, err)

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scanner stopped")
			return nil
		case <-ticker.C:
			_, err := s.RunOnce(ctx)
			s.logCycleError(ctx, err)
		}
	}
}

func (s *Scanner) logCycleError(ctx context.Context, err error) {
	if err == nil || ctx.Err() != nil {
		return
	}
	slog.Error("scan cycle failed", "err", err)
}

// RunOnce ejecuta exactamente un ciclo y devuelve su snapshot.
//
// Si el ctx se cancela durante el fetch el ciclo se descarta y no se persiste nada.
// Si la persistencia falla devuelve el snapshot junto con un *domain.SinkError:
// los resultados en memoria siguen siendo válidos.
func (s *Scanner) RunOnce(ctx context.Context) (domain.AnalysisSnapshot, error) {
	start := time.Now()

	snap, err := s.cycle(ctx)
	if err != nil {
		s.metrics.ObserveCycle(metrics.CycleCancelled, time.Since(start), domain.Summary{})
		return domain.AnalysisSnapshot{}, err
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, snap); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	outcome := metrics.CycleOK
	var sinkErr error
	if s.sink != nil {
		if err := s.sink.PersistSnapshot(ctx, snap); err != nil {
			outcome = metrics.CycleSinkError
			sinkErr = asSinkError(err)
			slog.Warn("snapshot not persisted", "err", sinkErr)
		}
	}

	s.metrics.ObserveCycle(outcome, time.Since(start), snap.Summary)
	slog.Info("scan cycle complete",
		"cycle", snap.Metadata.CycleID,
		"oracle_prices", len(snap.PriceData.Oracle),
		"pool_prices", len(snap.PriceData.Pool),
		"opportunities", snap.Summary.TotalOpportunities,
		"best_spread_pct", fmt.Sprintf("%.3f", snap.Summary.BestSpread),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return snap, sinkErr
}

// cycle hace fetch concurrente de ambas fuentes → normalize → detect y arma el snapshot.
func (s *Scanner) cycle(ctx context.Context) (domain.AnalysisSnapshot, error) {
	var (
		oracleResults []domain.OracleResult
		poolResults   []domain.PoolResult
	)

	// Las dos fuentes son independientes; el detector espera a ambas.
	// Los fallos por símbolo viajan en los resultados: el grupo solo falla si
	// el ctx del ciclo se cancela, y entonces la otra fuente corta también.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		oracleResults = fetchOraclePrices(gctx, s.oracle, s.symbols, s.cfg.FetchWorkers, s.cfg.FetchTimeout)
		return ctx.Err()
	})
	g.Go(func() error {
		poolResults = fetchPools(gctx, s.pools, s.symbols, s.cfg.Detector.QuoteSymbol, s.cfg.FetchWorkers, s.cfg.FetchTimeout)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return domain.AnalysisSnapshot{}, fmt.Errorf("scanner.cycle: cancelled: %w", err)
	}

	oraclePrices, rejectedOracle := normalizeOracle(oracleResults, s.metrics)
	poolPrices, rejectedPool := normalizePools(poolResults, s.metrics)

	now := s.now()
	opps := s.detector.Detect(oraclePrices, poolPrices, now)

	snap := domain.NewSnapshot(now, s.detector.AnalysisConfig(), oraclePrices, poolPrices, opps, s.tokens)
	snap.Metadata.CycleID = s.newID()
	snap.Metadata.Rejected = rejectedOracle.Add(rejectedPool)
	return snap, nil
}

// asSinkError garantiza que el error devuelto al caller sea un *domain.SinkError.
func asSinkError(err error) error {
	var se *domain.SinkError
	if errors.As(err, &se) {
		return err
	}
	return &domain.SinkError{Sink: "snapshot", Err: err}
}

// dedupSymbols elimina símbolos repetidos (sin distinguir mayúsculas).
// Devuelve los símbolos tal cual para los adapters y en mayúsculas para metadata.
func dedupSymbols(in []string) (symbols, tokens []string) {
	seen := make(map[string]bool, len(in))
	for _, sym := range in {
		upper := domain.NormalizeSymbol(sym)
		if upper == "" || seen[upper] {
			continue
		}
		seen[upper] = true
		symbols = append(symbols, strings.TrimSpace(sym))
		tokens = append(tokens, upper)
	}
	return symbols, tokens
}
