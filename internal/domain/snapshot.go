package domain

import "time"

// SnapshotVersion se escribe en metadata.version de cada snapshot.
const SnapshotVersion = "1.0.0"

// AnalysisConfig son los parámetros del análisis que quedan registrados en el snapshot.
type AnalysisConfig struct {
	MinSpreadPercentage float64 `json:"minSpreadPercentage"`
	MinConfidence       float64 `json:"minConfidence"`
	MaxPriceAge         int     `json:"maxPriceAge"` // segundos
}

// PriceData agrupa los precios normalizados de ambas fuentes.
type PriceData struct {
	Oracle []NormalizedPrice `json:"oracle"`
	Pool   []NormalizedPrice `json:"pool"`
}

// RejectedCounts cuenta los símbolos descartados en el ciclo, por motivo.
type RejectedCounts struct {
	Validation   int `json:"validation"`
	NotFound     int `json:"notFound"`
	SourceErrors int `json:"sourceErrors"`
}

// Add suma dos conteos.
func (r RejectedCounts) Add(o RejectedCounts) RejectedCounts {
	return RejectedCounts{
		Validation:   r.Validation + o.Validation,
		NotFound:     r.NotFound + o.NotFound,
		SourceErrors: r.SourceErrors + o.SourceErrors,
	}
}

// SnapshotMetadata describe el ciclo que produjo el snapshot.
type SnapshotMetadata struct {
	AnalysisTime   string         `json:"analysisTime"`
	TokensAnalyzed []string       `json:"tokensAnalyzed"`
	SourcesUsed    []string       `json:"sourcesUsed"`
	Version        string         `json:"version"`
	CycleID        string         `json:"cycleId,omitempty"`
	Rejected       RejectedCounts `json:"rejected"`
}

// AnalysisSnapshot es la salida completa de un ciclo. Cada snapshot reemplaza al anterior.
type AnalysisSnapshot struct {
	LastUpdated    string                 `json:"lastUpdated"`
	AnalysisConfig AnalysisConfig         `json:"analysisConfig"`
	PriceData      PriceData              `json:"priceData"`
	Opportunities  []ArbitrageOpportunity `json:"opportunities"`
	Summary        Summary                `json:"summary"`
	Metadata       SnapshotMetadata       `json:"metadata"`
}

// NewSnapshot arma el snapshot de un ciclo. Las listas nil se serializan como [].
func NewSnapshot(
	at time.Time,
	cfg AnalysisConfig,
	oracle, pool []NormalizedPrice,
	opps []ArbitrageOpportunity,
	tokens []string,
) AnalysisSnapshot {
	ts := FormatTimestamp(at)
	return AnalysisSnapshot{
		LastUpdated:    ts,
		AnalysisConfig: cfg,
		PriceData: PriceData{
			Oracle: nonNil(oracle),
			Pool:   nonNil(pool),
		},
		Opportunities: nonNil(opps),
		Summary:       Summarize(opps),
		Metadata: SnapshotMetadata{
			AnalysisTime:   ts,
			TokensAnalyzed: nonNil(tokens),
			SourcesUsed:    []string{SourceOracle.String(), SourcePool.String()},
			Version:        SnapshotVersion,
		},
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
