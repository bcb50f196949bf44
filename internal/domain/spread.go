package domain

import "math"

// Spread es la diferencia entre dos precios del mismo activo.
type Spread struct {
	Absolute float64 // |a - b|
	Average  float64 // (a + b) / 2
	Percent  float64 // Absolute / Average × 100
}

// ComputeSpread calcula el spread entre a y b. Simétrico en a y b.
// ok=false si la media no es positiva: el par no es comparable.
func ComputeSpread(a, b float64) (Spread, bool) {
	avg := (a + b) / 2
	if avg <= 0 || math.IsNaN(avg) || math.IsInf(avg, 0) {
		return Spread{}, false
	}
	abs := math.Abs(a - b)
	return Spread{
		Absolute: abs,
		Average:  avg,
		Percent:  abs / avg * 100,
	}, true
}

// EstimateProfit es una heurística de ranking: spread sobre un nocional fijo.
// No modela fees, slippage ni gas.
func EstimateProfit(spreadPercent, notional float64) float64 {
	return spreadPercent / 100 * notional
}

// CombinedConfidence es la media de las confianzas de ambas fuentes.
func CombinedConfidence(a, b float64) float64 {
	return (a + b) / 2
}
