package ports

import (
	"context"

	"github.com/alejandrodnm/arbscan/internal/domain"
)

// Notifier presenta el resultado de un ciclo al usuario.
type Notifier interface {
	Notify(ctx context.Context, snapshot domain.AnalysisSnapshot) error
}
