package subgraph

// client.go — adapter del pool DEX sobre un subgraph estilo Uniswap v3.
//
// Una sola request GraphQL con dos alias: target como token0 y target como token1.
// La selección del pool (mayor TVL, desempate por id) se hace en SelectPool.

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/arbscan/internal/adapters/apiclient"
	"github.com/alejandrodnm/arbscan/internal/domain"
)

const defaultFirst = 5

const poolsQuery = `
query Pools($target: [String!]!, $quote: [String!]!, $first: Int!) {
  direct: pools(
    first: $first
    orderBy: totalValueLockedUSD
    orderDirection: desc
    where: { token0_: { symbol_in: $target }, token1_: { symbol_in: $quote } }
  ) { ...PoolFields }
  swapped: pools(
    first: $first
    orderBy: totalValueLockedUSD
    orderDirection: desc
    where: { token0_: { symbol_in: $quote }, token1_: { symbol_in: $target } }
  ) { ...PoolFields }
  _meta { block { number timestamp } }
}

fragment PoolFields on Pool {
  id
  token0 { id symbol decimals }
  token1 { id symbol decimals }
  token0Price
  token1Price
  totalValueLockedUSD
  volumeUSD
}
`

// Client implementa ports.PoolProvider.
type Client struct {
	api   *apiclient.Client
	url   string
	first int
	now   func() time.Time
}

// NewClient crea un Client para el endpoint GraphQL dado.
// first limita los pools devueltos por dirección (0 = 5).
func NewClient(api *apiclient.Client, url string, first int) *Client {
	if first <= 0 {
		first = defaultFirst
	}
	return &Client{api: api, url: url, first: first, now: time.Now}
}

// FindPoolBySymbols devuelve el pool de mayor TVL que contiene target y quote.
// domain.ErrNotFound si ningún pool contiene ambos símbolos.
func (c *Client) FindPoolBySymbols(ctx context.Context, target, quote string) (domain.RawPoolPrice, error) {
	symbol := domain.NormalizeSymbol(target)

	req := graphqlRequest{
		Query: poolsQuery,
		Variables: map[string]any{
			"target": symbolVariants(target),
			"quote":  symbolVariants(quote),
			"first":  c.first,
		},
	}

	var resp graphqlResponse
	if err := c.api.PostJSON(ctx, c.url, req, &resp); err != nil {
		return domain.RawPoolPrice{}, &domain.SourceError{Source: domain.SourcePool, Symbol: symbol, Err: err}
	}
	if len(resp.Errors) > 0 {
		return domain.RawPoolPrice{}, &domain.SourceError{
			Source: domain.SourcePool,
			Symbol: symbol,
			Err:    fmt.Errorf("graphql error: %s", resp.Errors[0].Message),
		}
	}

	var data poolsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return domain.RawPoolPrice{}, &domain.SourceError{
			Source: domain.SourcePool, Symbol: symbol, Err: fmt.Errorf("decode pools: %w", err),
		}
	}

	fetchedAt := c.now()
	if data.Meta != nil && data.Meta.Block.Timestamp > 0 {
		fetchedAt = time.Unix(data.Meta.Block.Timestamp, 0)
	}

	candidates := mapPools(append(data.Direct, data.Swapped...), fetchedAt)
	pool, ok := SelectPool(candidates, target, quote)
	if !ok {
		return domain.RawPoolPrice{}, fmt.Errorf("subgraph.FindPoolBySymbols %s/%s: %w", target, quote, domain.ErrNotFound)
	}

	slog.Debug("pool selected",
		"symbol", symbol,
		"pool", pool.PoolID,
		"tvl_usd", pool.TotalValueLockedUSD,
		"candidates", len(candidates),
	)
	return pool, nil
}
