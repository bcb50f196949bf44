package apiclient

// client.go — HTTP JSON client compartido por los adapters de oracle y subgraph.
//
// Cada upstream tiene su propio token bucket. Los reintentos son opt-in: la
// política pertenece al caller (config api.retries), por defecto 0.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultRatePerSec = 10
	defaultBurst      = 5
	baseRetryWait     = 500 * time.Millisecond
	maxErrorBody      = 512
)

// Options configura un Client.
type Options struct {
	Timeout    time.Duration // timeout del http.Client (0 = 10s)
	RatePerSec float64       // requests/segundo permitidos (0 = 10)
	Burst      int           // ráfaga del limiter (0 = 5)
	MaxRetries int           // reintentos ante error de red / 429 / 5xx (0 = ninguno)
	Headers    map[string]string
}

// StatusError es una respuesta HTTP no exitosa.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

// Client es un HTTP client JSON con rate limiting y reintentos opcionales.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	headers    map[string]string
}

// New crea un Client con las opciones dadas.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = defaultRatePerSec
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Client{
		http:       &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		maxRetries: opts.MaxRetries,
		headers:    opts.Headers,
	}
}

// Get hace un GET y decodifica el JSON de la respuesta en out.
func (c *Client) Get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return c.http.Do(req)
	}, out)
}

// PostJSON hace un POST con body JSON y decodifica la respuesta en out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.setHeaders(req)
		return c.http.Do(req)
	}, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
}

// doWithRetry ejecuta la request respetando el limiter y, si hay reintentos
// configurados, aplica backoff exponencial ante fallos de red, 429 y 5xx.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, attempt-1); err != nil {
				return err
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			lastErr = fmt.Errorf("request: %w", err)
			if ctx.Err() != nil {
				return lastErr
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = &StatusError{Code: resp.StatusCode, Body: readBody(resp)}
			if resp.StatusCode == http.StatusTooManyRequests {
				slog.Warn("rate limited by API", "attempt", attempt+1)
			}
			continue
		}

		if resp.StatusCode >= 300 {
			return &StatusError{Code: resp.StatusCode, Body: readBody(resp)}
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	if c.maxRetries > 0 {
		return fmt.Errorf("exhausted %d retries: %w", c.maxRetries, lastErr)
	}
	return lastErr
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return string(b)
}
