package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/arbscan/internal/domain"
)

// HistoryStore guarda el histórico de ciclos. El detector nunca lee de aquí:
// cada ciclo es independiente.
type HistoryStore interface {
	SnapshotSink

	// GetHistory devuelve las oportunidades detectadas en el rango de tiempo dado.
	GetHistory(ctx context.Context, from, to time.Time) ([]domain.ArbitrageOpportunity, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
