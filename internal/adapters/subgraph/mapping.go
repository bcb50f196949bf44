package subgraph

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// SelectPool elige, entre los pools que contienen target y quote (en cualquier
// orden, sin distinguir mayúsculas), el de mayor TVL. Empate → menor pool id.
func SelectPool(pools []domain.RawPoolPrice, target, quote string) (domain.RawPoolPrice, bool) {
	var matches []domain.RawPoolPrice
	for _, p := range pools {
		if containsPair(p, target, quote) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return domain.RawPoolPrice{}, false
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].TotalValueLockedUSD != matches[j].TotalValueLockedUSD {
			return matches[i].TotalValueLockedUSD > matches[j].TotalValueLockedUSD
		}
		return strings.ToLower(matches[i].PoolID) < strings.ToLower(matches[j].PoolID)
	})
	return matches[0], true
}

// containsPair: un token es target y el otro quote, en cualquier dirección.
func containsPair(p domain.RawPoolPrice, target, quote string) bool {
	t0, t1 := p.Token0.Symbol, p.Token1.Symbol
	return (strings.EqualFold(t0, target) && strings.EqualFold(t1, quote)) ||
		(strings.EqualFold(t0, quote) && strings.EqualFold(t1, target))
}

// mapPools convierte los DTOs a domain.RawPoolPrice. Los pools mal formados se descartan.
func mapPools(raw []poolDTO, fetchedAt time.Time) []domain.RawPoolPrice {
	ts := domain.FormatTimestamp(fetchedAt)
	pools := make([]domain.RawPoolPrice, 0, len(raw))
	for _, r := range raw {
		p, err := mapPool(r, ts)
		if err != nil {
			slog.Debug("skipping malformed pool", "pool", r.ID, "err", err)
			continue
		}
		pools = append(pools, p)
	}
	return pools
}

// mapPool convierte un pool del subgraph. En el schema de Uniswap v3
// token0Price es "token0 por token1", o sea el precio de token1 (y al revés),
// así que los campos se cruzan: en domain.RawPoolPrice, Token0Price es el
// precio de token0 expresado en token1.
func mapPool(r poolDTO, fetchedAt string) (domain.RawPoolPrice, error) {
	token0Price, err := parseDecimal(r.Token1Price)
	if err != nil {
		return domain.RawPoolPrice{}, err
	}
	token1Price, err := parseDecimal(r.Token0Price)
	if err != nil {
		return domain.RawPoolPrice{}, err
	}
	tvl, err := parseDecimal(r.TotalValueLockedUSD)
	if err != nil {
		return domain.RawPoolPrice{}, err
	}
	volume, err := parseDecimal(r.VolumeUSD)
	if err != nil {
		return domain.RawPoolPrice{}, err
	}

	return domain.RawPoolPrice{
		PoolID:              strings.ToLower(r.ID),
		Token0:              mapToken(r.Token0),
		Token1:              mapToken(r.Token1),
		Token0Price:         token0Price,
		Token1Price:         token1Price,
		TotalValueLockedUSD: tvl,
		VolumeUSD:           volume,
		FetchedAt:           fetchedAt,
	}, nil
}

func mapToken(t tokenDTO) domain.PoolToken {
	decimals, _ := strconv.Atoi(t.Decimals)
	return domain.PoolToken{
		Symbol:   t.Symbol,
		Address:  checksumAddress(t.ID),
		Decimals: decimals,
	}
}

// checksumAddress devuelve la dirección en formato EIP-55; si no es hex válido la deja igual.
func checksumAddress(addr string) string {
	if !common.IsHexAddress(addr) {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}

// parseDecimal interpreta un BigDecimal del subgraph. Vacío cuenta como 0.
func parseDecimal(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

// symbolVariants genera las variantes de capitalización a pasar en symbol_in:
// el filtro del subgraph distingue mayúsculas.
func symbolVariants(s string) []string {
	s = strings.TrimSpace(s)
	seen := make(map[string]bool, 3)
	out := make([]string, 0, 3)
	for _, v := range []string{s, strings.ToUpper(s), strings.ToLower(s)} {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
