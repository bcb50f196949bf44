package scanner

import (
	"log/slog"
	"time"

	"github.com/alejandrodnm/arbscan/internal/domain"
)

// Motivos de rechazo de un par, usados en logs.
const (
	rejectStale         = "stale"
	rejectBelowSpread   = "below_spread"
	rejectLowConfidence = "low_confidence"
)

// FilterConfig contiene los umbrales que debe superar un par para emitir oportunidad.
type FilterConfig struct {
	// MinSpreadPercentage es una fracción: 0.02 = 2%.
	MinSpreadPercentage float64
	// MinConfidence sobre la media de confianzas de ambas fuentes.
	MinConfidence float64
	// MaxPriceAge descarta precios más viejos que esto respecto a "now".
	MaxPriceAge time.Duration
}

// DefaultFilterConfig devuelve los umbrales por defecto: 2%, 0.7, 300s.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinSpreadPercentage: 0.02,
		MinConfidence:       0.7,
		MaxPriceAge:         300 * time.Second,
	}
}

// Filter aplica staleness, umbral de spread y confianza.
type Filter struct {
	cfg FilterConfig
}

// NewFilter crea un Filter con la configuración dada.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Fresh devuelve true si ambos precios son lo bastante recientes.
// Un timestamp ilegible cuenta como viejo.
func (f *Filter) Fresh(now time.Time, prices ...domain.NormalizedPrice) bool {
	for _, p := range prices {
		age, ok := p.Age(now)
		if !ok || age > f.cfg.MaxPriceAge {
			return false
		}
	}
	return true
}

// Apply devuelve las oportunidades que pasan spread y confianza, sin reordenar.
func (f *Filter) Apply(opps []domain.ArbitrageOpportunity) []domain.ArbitrageOpportunity {
	result := make([]domain.ArbitrageOpportunity, 0, len(opps))
	for _, opp := range opps {
		if reason := f.rejectReason(opp); reason != "" {
			slog.Debug("pair rejected",
				"symbol", opp.BaseSymbol,
				"reason", reason,
				"spread_pct", opp.SpreadPercent,
				"confidence", opp.Confidence,
			)
			continue
		}
		result = append(result, opp)
	}
	return result
}

// rejectReason evalúa ambos criterios por separado; "" si la oportunidad pasa.
// Umbral estricto: un spread exactamente igual al mínimo pasa.
func (f *Filter) rejectReason(opp domain.ArbitrageOpportunity) string {
	if opp.SpreadPercent < f.cfg.MinSpreadPercentage*100 {
		return rejectBelowSpread
	}
	if opp.Confidence < f.cfg.MinConfidence {
		return rejectLowConfidence
	}
	return ""
}
