// Package metrics expone contadores Prometheus del ciclo de análisis:
//
//	arbscan_cycles_total{outcome}
//	arbscan_prices_total{source,outcome}
//	arbscan_opportunities_total
//	arbscan_sink_errors_total{sink}
//	arbscan_best_spread_percent
//	arbscan_cycle_duration_seconds
//
// más las métricas go_* y process_* del runtime.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resultados posibles de un precio dentro de un ciclo.
const (
	OutcomeOK          = "ok"
	OutcomeValidation  = "validation"
	OutcomeNotFound    = "not_found"
	OutcomeSourceError = "source_error"
)

// Resultados posibles de un ciclo.
const (
	CycleOK        = "ok"
	CycleSinkError = "sink_error"
	CycleCancelled = "cancelled"
)

// Metrics agrupa los colectores sobre un registry propio.
// Un *Metrics nil es válido: todos los métodos son no-op.
type Metrics struct {
	registry      *prometheus.Registry
	cycles        *prometheus.CounterVec
	prices        *prometheus.CounterVec
	opportunities prometheus.Counter
	sinkErrors    *prometheus.CounterVec
	bestSpread    prometheus.Gauge
	cycleDuration prometheus.Histogram
}

// New crea y registra todos los colectores.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbscan_cycles_total",
			Help: "Analysis cycles run, by outcome",
		}, []string{"outcome"}),
		prices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbscan_prices_total",
			Help: "Per-symbol price fetches, by source and outcome",
		}, []string{"source", "outcome"}),
		opportunities: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arbscan_opportunities_total",
			Help: "Arbitrage opportunities emitted",
		}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arbscan_sink_errors_total",
			Help: "Snapshot persistence failures, by sink",
		}, []string{"sink"}),
		bestSpread: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arbscan_best_spread_percent",
			Help: "Best spread percentage of the last completed cycle",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbscan_cycle_duration_seconds",
			Help:    "Wall-clock duration of an analysis cycle",
			Buckets: prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.cycles,
		m.prices,
		m.opportunities,
		m.sinkErrors,
		m.bestSpread,
		m.cycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry devuelve el registry subyacente (tests).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObservePrice cuenta el resultado del fetch+normalización de un símbolo.
func (m *Metrics) ObservePrice(source domain.Source, outcome string) {
	if m == nil {
		return
	}
	m.prices.WithLabelValues(source.String(), outcome).Inc()
}

// ObserveCycle registra un ciclo terminado.
func (m *Metrics) ObserveCycle(outcome string, elapsed time.Duration, summary domain.Summary) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(elapsed.Seconds())
	if outcome == CycleCancelled {
		return
	}
	m.opportunities.Add(float64(summary.TotalOpportunities))
	m.bestSpread.Set(summary.BestSpread)
}

// ObserveSinkError cuenta un fallo de persistencia.
func (m *Metrics) ObserveSinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}

// Handler devuelve el handler HTTP de /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve expone /metrics en addr hasta que ctx se cancele.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
