package ports

import (
	"context"

	"github.com/alejandrodnm/arbscan/internal/domain"
)

// SnapshotSink persiste el snapshot de un ciclo. Cada escritura reemplaza la anterior.
type SnapshotSink interface {
	PersistSnapshot(ctx context.Context, snapshot domain.AnalysisSnapshot) error
}
