package scanner

import (
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/arbscan/internal/domain"
)

// DetectorConfig son los parámetros del detector de oportunidades.
type DetectorConfig struct {
	Filter FilterConfig
	// NotionalTradeSize es el tamaño de posición de referencia para estimar profit.
	NotionalTradeSize float64
	// QuoteSymbol es la moneda de referencia de todas las oportunidades.
	QuoteSymbol string
}

// DefaultDetectorConfig devuelve la configuración por defecto ($1000 nocional, USDC).
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Filter:            DefaultFilterConfig(),
		NotionalTradeSize: 1000,
		QuoteSymbol:       "USDC",
	}
}

// Detector empareja precios normalizados de dos fuentes por símbolo y emite
// las oportunidades de arbitraje ordenadas por profit estimado.
// No guarda estado entre llamadas.
type Detector struct {
	cfg    DetectorConfig
	filter *Filter
}

// NewDetector crea un Detector con la configuración dada.
func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{cfg: cfg, filter: NewFilter(cfg.Filter)}
}

// AnalysisConfig devuelve los parámetros que se registran en el snapshot.
func (d *Detector) AnalysisConfig() domain.AnalysisConfig {
	return domain.AnalysisConfig{
		MinSpreadPercentage: d.cfg.Filter.MinSpreadPercentage,
		MinConfidence:       d.cfg.Filter.MinConfidence,
		MaxPriceAge:         int(d.cfg.Filter.MaxPriceAge / time.Second),
	}
}

// Detect compara cada precio de a con el precio del mismo símbolo en b.
//
// Un símbolo ausente en b se ignora. Si b repite un símbolo gana el último.
// La fuente más barata es siempre la de compra, así que BuyPrice <= SellPrice.
// El resultado va ordenado por EstimatedProfit descendente; los empates
// conservan el orden de a.
func (d *Detector) Detect(a, b []domain.NormalizedPrice, now time.Time) []domain.ArbitrageOpportunity {
	lookup := make(map[string]domain.NormalizedPrice, len(b))
	for _, p := range b {
		lookup[domain.NormalizeSymbol(p.Symbol)] = p
	}

	detectedAt := domain.FormatTimestamp(now)
	candidates := make([]domain.ArbitrageOpportunity, 0, len(a))
	for _, pa := range a {
		symbol := domain.NormalizeSymbol(pa.Symbol)
		pb, ok := lookup[symbol]
		if !ok {
			continue
		}

		if !d.filter.Fresh(now, pa, pb) {
			slog.Debug("pair rejected", "symbol", symbol, "reason", rejectStale)
			continue
		}

		spread, ok := domain.ComputeSpread(pa.Price, pb.Price)
		if !ok {
			slog.Debug("pair not comparable", "symbol", symbol, "price_a", pa.Price, "price_b", pb.Price)
			continue
		}

		candidates = append(candidates, d.opportunity(symbol, pa, pb, spread, detectedAt))
	}

	return rankByProfit(d.filter.Apply(candidates))
}

func (d *Detector) opportunity(
	symbol string,
	pa, pb domain.NormalizedPrice,
	spread domain.Spread,
	detectedAt string,
) domain.ArbitrageOpportunity {
	buy, sell := pa, pb
	if pb.Price < pa.Price {
		buy, sell = pb, pa
	}
	return domain.ArbitrageOpportunity{
		BaseSymbol:      symbol,
		QuoteSymbol:     d.cfg.QuoteSymbol,
		BuySource:       buy.Source,
		SellSource:      sell.Source,
		BuyPrice:        buy.Price,
		SellPrice:       sell.Price,
		SpreadAbsolute:  spread.Absolute,
		SpreadPercent:   spread.Percent,
		EstimatedProfit: domain.EstimateProfit(spread.Percent, d.cfg.NotionalTradeSize),
		Confidence:      domain.CombinedConfidence(pa.Confidence, pb.Confidence),
		DetectedAt:      detectedAt,
	}
}

// rankByProfit ordena por EstimatedProfit descendente; estable.
func rankByProfit(opps []domain.ArbitrageOpportunity) []domain.ArbitrageOpportunity {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].EstimatedProfit > opps[j].EstimatedProfit
	})
	return opps
}
