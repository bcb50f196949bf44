package ports

import (
	"context"

	"github.com/alejandrodnm/arbscan/internal/domain"
)

// OracleProvider obtiene el último precio publicado por el push oracle.
type OracleProvider interface {
	// FetchPrice devuelve el precio de un símbolo. Errores posibles:
	// domain.ErrNotFound (símbolo sin feed), domain.ErrUnavailable (upstream sin datos)
	// o *domain.SourceError. No reintenta por su cuenta.
	FetchPrice(ctx context.Context, symbol string) (domain.RawOraclePrice, error)
}
