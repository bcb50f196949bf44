package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Source identifica de dónde viene un precio normalizado.
type Source int

const (
	SourceOracle Source = iota // push oracle (Hermes)
	SourcePool                 // pool DEX indexado por subgraph
)

func (s Source) String() string {
	switch s {
	case SourceOracle:
		return "ORACLE"
	case SourcePool:
		return "POOL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON serializa la fuente como "ORACLE" | "POOL".
func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON acepta "ORACLE" | "POOL" sin distinguir mayúsculas.
func (s *Source) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	src, err := ParseSource(raw)
	if err != nil {
		return err
	}
	*s = src
	return nil
}

// ParseSource interpreta "ORACLE" | "POOL" sin distinguir mayúsculas.
func ParseSource(raw string) (Source, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "ORACLE":
		return SourceOracle, nil
	case "POOL":
		return SourcePool, nil
	}
	return 0, fmt.Errorf("domain: unknown source %q", raw)
}

// RawOraclePrice es el precio tal cual lo publica el oracle.
type RawOraclePrice struct {
	Symbol    string
	Price     float64
	Timestamp string // ISO8601

	FeedID   string  // id del feed en el oracle (informativo)
	ConfBand float64 // intervalo de confianza publicado, en unidades de precio
}

// PoolToken describe uno de los dos tokens de un pool.
type PoolToken struct {
	Symbol   string
	Address  string
	Decimals int
}

// RawPoolPrice es el estado de un pool tal cual lo devuelve el subgraph.
type RawPoolPrice struct {
	PoolID              string
	Token0              PoolToken
	Token1              PoolToken
	Token0Price         float64
	Token1Price         float64
	TotalValueLockedUSD float64
	VolumeUSD           float64
	FetchedAt           string // ISO8601
}

// HasSymbol devuelve true si alguno de los tokens del pool coincide con symbol.
func (p RawPoolPrice) HasSymbol(symbol string) bool {
	return strings.EqualFold(p.Token0.Symbol, symbol) || strings.EqualFold(p.Token1.Symbol, symbol)
}

// NormalizedPrice es la representación común que consume el detector.
type NormalizedPrice struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Timestamp  string  `json:"timestamp"`
	Source     Source  `json:"source"`
	Confidence float64 `json:"confidence"`

	// Degraded marca el fallback a token0 cuando el símbolo pedido no está en el pool.
	Degraded bool `json:"degraded,omitempty"`
}

// Age devuelve la antigüedad del precio respecto a now.
// ok=false si el timestamp no se puede interpretar.
func (p NormalizedPrice) Age(now time.Time) (time.Duration, bool) {
	ts, err := ParseTimestamp(p.Timestamp)
	if err != nil {
		return 0, false
	}
	return now.Sub(ts), true
}

// NormalizeSymbol pasa un símbolo a la forma canónica (mayúsculas, sin espacios).
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// FormatTimestamp serializa un instante en el formato ISO8601 usado en todo el sistema.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp acepta los formatos ISO8601 más comunes de las APIs.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("domain.ParseTimestamp: empty timestamp")
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("domain.ParseTimestamp: unsupported format %q", s)
}
