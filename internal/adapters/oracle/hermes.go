package oracle

// hermes.go — adapter del push oracle (API Hermes).
//
// Un request por símbolo, sin cache local. Los fallos de transporte o parseo se
// devuelven como *domain.SourceError; un feed vacío o a cero es ErrUnavailable.

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/alejandrodnm/arbscan/internal/adapters/apiclient"
	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	DefaultBase     = "https://hermes.pyth.network"
	latestPricePath = "/v2/updates/price/latest"
)

// DefaultFeeds son los feed ids USD conocidos. Se pueden ampliar desde config.
var DefaultFeeds = map[string]string{
	"ETH":  "0xff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
	"WETH": "0xff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
	"BTC":  "0xe62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
	"WBTC": "0xe62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
}

// Client implementa ports.OracleProvider sobre Hermes.
type Client struct {
	api   *apiclient.Client
	base  string
	feeds map[string]string // símbolo en mayúsculas → feed id
}

// NewClient crea un Client. Si base está vacío usa el endpoint público.
// feeds se fusiona sobre DefaultFeeds; las claves se normalizan a mayúsculas.
func NewClient(api *apiclient.Client, base string, feeds map[string]string) *Client {
	if base == "" {
		base = DefaultBase
	}
	merged := make(map[string]string, len(DefaultFeeds)+len(feeds))
	for k, v := range DefaultFeeds {
		merged[k] = v
	}
	for k, v := range feeds {
		merged[domain.NormalizeSymbol(k)] = v
	}
	return &Client{
		api:   api,
		base:  strings.TrimRight(base, "/"),
		feeds: merged,
	}
}

// FetchPrice devuelve el último precio publicado para symbol.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (domain.RawOraclePrice, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.RawOraclePrice{}, &domain.SourceError{
			Source: domain.SourceOracle, Err: fmt.Errorf("empty symbol"),
		}
	}

	feedID, ok := c.feeds[symbol]
	if !ok {
		return domain.RawOraclePrice{}, fmt.Errorf("oracle.FetchPrice %s: no feed configured: %w", symbol, domain.ErrNotFound)
	}

	q := url.Values{}
	q.Add("ids[]", feedID)
	q.Set("parsed", "true")
	u := c.base + latestPricePath + "?" + q.Encode()

	var resp latestPriceResponse
	if err := c.api.Get(ctx, u, &resp); err != nil {
		return domain.RawOraclePrice{}, &domain.SourceError{Source: domain.SourceOracle, Symbol: symbol, Err: err}
	}

	if len(resp.Parsed) == 0 {
		return domain.RawOraclePrice{}, fmt.Errorf("oracle.FetchPrice %s: empty response: %w", symbol, domain.ErrUnavailable)
	}

	raw, err := mapPriceFeed(symbol, resp.Parsed[0])
	if err != nil {
		return domain.RawOraclePrice{}, &domain.SourceError{Source: domain.SourceOracle, Symbol: symbol, Err: err}
	}
	if raw.Price == 0 {
		return domain.RawOraclePrice{}, fmt.Errorf("oracle.FetchPrice %s: zero price: %w", symbol, domain.ErrUnavailable)
	}
	return raw, nil
}

// mapPriceFeed convierte un feed Hermes a RawOraclePrice aplicando el exponente.
// El escalado se hace en decimal exacto; recién al final pasa a float64.
func mapPriceFeed(symbol string, f parsedPriceFeed) (domain.RawOraclePrice, error) {
	mantissa, err := decimal.NewFromString(f.Price.Price)
	if err != nil {
		return domain.RawOraclePrice{}, fmt.Errorf("parse price %q: %w", f.Price.Price, err)
	}

	conf := decimal.Zero
	if f.Price.Conf != "" {
		conf, err = decimal.NewFromString(f.Price.Conf)
		if err != nil {
			return domain.RawOraclePrice{}, fmt.Errorf("parse conf %q: %w", f.Price.Conf, err)
		}
	}

	var timestamp string
	if f.Price.PublishTime > 0 {
		timestamp = domain.FormatTimestamp(time.Unix(f.Price.PublishTime, 0))
	}

	exp := int32(f.Price.Expo)
	return domain.RawOraclePrice{
		Symbol:    symbol,
		Price:     mantissa.Shift(exp).InexactFloat64(),
		Timestamp: timestamp,
		FeedID:    f.ID,
		ConfBand:  conf.Shift(exp).InexactFloat64(),
	}, nil
}
