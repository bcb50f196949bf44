package domain

import (
	"math"
	"strings"
)

// Confianza fija del oracle: datos fiables pero de una sola fuente.
const OracleConfidence = 0.8

// Umbrales de liquidez/volumen para la confianza de un pool.
//
//	base                      0.50
//	TVL > $10M   → +0.20  |  TVL > $1M   → +0.10
//	vol > $1M    → +0.15  |  vol > $100K → +0.05
const (
	poolBaseConfidence = 0.5

	tvlDeepUSD     = 10_000_000
	tvlMediumUSD   = 1_000_000
	tvlDeepBonus   = 0.2
	tvlMediumBonus = 0.1

	volumeHighUSD     = 1_000_000
	volumeMediumUSD   = 100_000
	volumeHighBonus   = 0.15
	volumeMediumBonus = 0.05
)

// PoolConfidence calcula la confianza de un precio de pool a partir de su TVL y volumen.
// Resultado siempre en [0.5, 1.0].
func PoolConfidence(tvlUSD, volumeUSD float64) float64 {
	c := poolBaseConfidence

	switch {
	case tvlUSD > tvlDeepUSD:
		c += tvlDeepBonus
	case tvlUSD > tvlMediumUSD:
		c += tvlMediumBonus
	}

	switch {
	case volumeUSD > volumeHighUSD:
		c += volumeHighBonus
	case volumeUSD > volumeMediumUSD:
		c += volumeMediumBonus
	}

	return math.Min(c, 1.0)
}

// NormalizeOracle convierte un RawOraclePrice a NormalizedPrice.
// Devuelve *ValidationError si el precio no es positivo o falta el timestamp.
func NormalizeOracle(raw RawOraclePrice) (NormalizedPrice, error) {
	symbol := NormalizeSymbol(raw.Symbol)
	if err := validate(SourceOracle, symbol, raw.Price, raw.Timestamp); err != nil {
		return NormalizedPrice{}, err
	}
	return NormalizedPrice{
		Symbol:     symbol,
		Price:      raw.Price,
		Timestamp:  raw.Timestamp,
		Source:     SourceOracle,
		Confidence: OracleConfidence,
	}, nil
}

// NormalizePool convierte un RawPoolPrice a NormalizedPrice para el símbolo target.
//
// Si target es token0 usa token0Price, si es token1 usa token1Price. Si no coincide
// con ninguno cae a token0 y marca el resultado como Degraded: puede etiquetar mal
// el precio, así que los consumidores deben tratarlo con cuidado.
func NormalizePool(raw RawPoolPrice, target string) (NormalizedPrice, error) {
	var (
		symbol   string
		price    float64
		degraded bool
	)

	switch {
	case strings.EqualFold(raw.Token0.Symbol, target):
		symbol, price = raw.Token0.Symbol, raw.Token0Price
	case strings.EqualFold(raw.Token1.Symbol, target):
		symbol, price = raw.Token1.Symbol, raw.Token1Price
	default:
		symbol, price = raw.Token0.Symbol, raw.Token0Price
		degraded = true
	}

	symbol = NormalizeSymbol(symbol)
	if err := validate(SourcePool, symbol, price, raw.FetchedAt); err != nil {
		return NormalizedPrice{}, err
	}

	return NormalizedPrice{
		Symbol:     symbol,
		Price:      price,
		Timestamp:  raw.FetchedAt,
		Source:     SourcePool,
		Confidence: PoolConfidence(raw.TotalValueLockedUSD, raw.VolumeUSD),
		Degraded:   degraded,
	}, nil
}

func validate(src Source, symbol string, price float64, timestamp string) error {
	switch {
	case symbol == "":
		return &ValidationError{Source: src, Symbol: symbol, Reason: "empty symbol"}
	case math.IsNaN(price) || math.IsInf(price, 0):
		return &ValidationError{Source: src, Symbol: symbol, Reason: "non-finite price"}
	case price <= 0:
		return &ValidationError{Source: src, Symbol: symbol, Reason: "non-positive price"}
	case strings.TrimSpace(timestamp) == "":
		return &ValidationError{Source: src, Symbol: symbol, Reason: "missing timestamp"}
	}
	return nil
}
