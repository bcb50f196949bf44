package ports

import (
	"context"

	"github.com/alejandrodnm/arbscan/internal/domain"
)

// PoolProvider localiza el pool con más liquidez para un par de símbolos.
type PoolProvider interface {
	// FindPoolBySymbols devuelve el pool de mayor TVL que contiene target y quote,
	// en cualquier orden. domain.ErrNotFound si no existe ninguno.
	FindPoolBySymbols(ctx context.Context, target, quote string) (domain.RawPoolPrice, error)
}
