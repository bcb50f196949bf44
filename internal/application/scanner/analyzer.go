package scanner

import (
	"errors"
	"log/slog"

	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/alejandrodnm/arbscan/internal/metrics"
)

// normalizeOracle convierte los resultados del oracle en precios normalizados.
// Los fallos se cuentan y se descartan: el detector solo recibe precios válidos.
func normalizeOracle(results []domain.OracleResult, m *metrics.Metrics) ([]domain.NormalizedPrice, domain.RejectedCounts) {
	var rejected domain.RejectedCounts
	prices := make([]domain.NormalizedPrice, 0, len(results))

	for _, r := range results {
		if r.Err != nil {
			reject(domain.SourceOracle, r.Symbol, r.Err, &rejected, m)
			continue
		}
		p, err := domain.NormalizeOracle(r.Price)
		if err != nil {
			reject(domain.SourceOracle, r.Symbol, err, &rejected, m)
			continue
		}
		m.ObservePrice(domain.SourceOracle, metrics.OutcomeOK)
		prices = append(prices, p)
	}
	return prices, rejected
}

// normalizePools convierte los pools seleccionados en precios del símbolo buscado.
func normalizePools(results []domain.PoolResult, m *metrics.Metrics) ([]domain.NormalizedPrice, domain.RejectedCounts) {
	var rejected domain.RejectedCounts
	prices := make([]domain.NormalizedPrice, 0, len(results))

	for _, r := range results {
		if r.Err != nil {
			reject(domain.SourcePool, r.Symbol, r.Err, &rejected, m)
			continue
		}
		p, err := domain.NormalizePool(r.Pool, r.Symbol)
		if err != nil {
			reject(domain.SourcePool, r.Symbol, err, &rejected, m)
			continue
		}
		if p.Degraded {
			slog.Warn("pool price resolved by token0 fallback",
				"symbol", r.Symbol,
				"pool", r.Pool.PoolID,
				"token0", r.Pool.Token0.Symbol,
				"token1", r.Pool.Token1.Symbol,
			)
		}
		m.ObservePrice(domain.SourcePool, metrics.OutcomeOK)
		prices = append(prices, p)
	}
	return prices, rejected
}

// reject clasifica el fallo de un símbolo: ausencia (info), validación (debug)
// o error de fuente (warn).
func reject(src domain.Source, symbol string, err error, rejected *domain.RejectedCounts, m *metrics.Metrics) {
	var verr *domain.ValidationError
	switch {
	case domain.IsAbsence(err):
		rejected.NotFound++
		m.ObservePrice(src, metrics.OutcomeNotFound)
		slog.Info("price absent", "source", src, "symbol", symbol, "reason", err)
	case errors.As(err, &verr):
		rejected.Validation++
		m.ObservePrice(src, metrics.OutcomeValidation)
		slog.Debug("price rejected", "source", src, "symbol", symbol, "reason", verr.Reason)
	default:
		rejected.SourceErrors++
		m.ObservePrice(src, metrics.OutcomeSourceError)
		slog.Warn("price fetch failed", "source", src, "symbol", symbol, "err", err)
	}
}
