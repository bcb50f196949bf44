package scanner

// concurrent.go — worker pool para el fetch por símbolo.
//
// Cada símbolo es una llamada de red independiente: un fallo o timeout solo
// deja a ese símbolo fuera del ciclo.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/alejandrodnm/arbscan/internal/ports"
)

type fetchResult[T any] struct {
	value T
	err   error
}

// fetchEach llama a fetch para cada key usando un pool de workers.
// El resultado i corresponde a keys[i]. Cada llamada se acota con timeout (0 = sin límite
// propio, solo el del ctx padre).
//
// Si workers <= 0 usa runtime.NumCPU() × 2.
func fetchEach[T any](
	ctx context.Context,
	keys []string,
	workers int,
	timeout time.Duration,
	fetch func(context.Context, string) (T, error),
) []fetchResult[T] {
	results := make([]fetchResult[T], len(keys))
	if len(keys) == 0 {
		return results
	}
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	workers = min(workers, len(keys))

	workCh := make(chan int, len(keys))
	for i := range keys {
		workCh <- i
	}
	close(workCh)

	// Cada worker escribe solo en su índice: no hace falta lock.
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range workCh {
				results[i] = fetchOne(ctx, keys[i], timeout, fetch)
			}
		}()
	}
	wg.Wait()

	slog.Debug("concurrent fetch complete", "keys", len(keys), "workers", workers)
	return results
}

func fetchOne[T any](
	ctx context.Context,
	key string,
	timeout time.Duration,
	fetch func(context.Context, string) (T, error),
) fetchResult[T] {
	if err := ctx.Err(); err != nil {
		return fetchResult[T]{err: err}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	v, err := fetch(ctx, key)
	return fetchResult[T]{value: v, err: err}
}

// fetchOraclePrices obtiene el precio de oracle de cada símbolo.
// Devuelve un resultado independiente por símbolo, en el orden de entrada.
func fetchOraclePrices(
	ctx context.Context,
	oracle ports.OracleProvider,
	symbols []string,
	workers int,
	timeout time.Duration,
) []domain.OracleResult {
	raw := fetchEach(ctx, symbols, workers, timeout, oracle.FetchPrice)

	out := make([]domain.OracleResult, len(symbols))
	for i, r := range raw {
		out[i] = domain.OracleResult{Symbol: symbols[i], Price: r.value, Err: r.err}
	}
	return out
}

// fetchPools busca el pool target/quote de cada símbolo.
func fetchPools(
	ctx context.Context,
	pools ports.PoolProvider,
	targets []string,
	quote string,
	workers int,
	timeout time.Duration,
) []domain.PoolResult {
	raw := fetchEach(ctx, targets, workers, timeout, func(ctx context.Context, target string) (domain.RawPoolPrice, error) {
		return pools.FindPoolBySymbols(ctx, target, quote)
	})

	out := make([]domain.PoolResult, len(targets))
	for i, r := range raw {
		out[i] = domain.PoolResult{Symbol: targets[i], Pool: r.value, Err: r.err}
	}
	return out
}
