package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/alejandrodnm/arbscan/internal/metrics"
	"github.com/alejandrodnm/arbscan/internal/ports"
)

type namedSink struct {
	name string
	sink ports.SnapshotSink
}

// Multi reparte cada snapshot entre varios sinks, en orden de registro.
// Un fallo no impide intentar los demás; todos los fallos vuelven juntos
// en un único *domain.SinkError.
type Multi struct {
	sinks   []namedSink
	metrics *metrics.Metrics
}

// NewMulti crea un Multi vacío. m puede ser nil.
func NewMulti(m *metrics.Metrics) *Multi {
	return &Multi{metrics: m}
}

// Add registra un sink con el nombre usado en logs, errores y métricas.
func (m *Multi) Add(name string, s ports.SnapshotSink) *Multi {
	m.sinks = append(m.sinks, namedSink{name: name, sink: s})
	return m
}

// Len devuelve la cantidad de sinks registrados.
func (m *Multi) Len() int { return len(m.sinks) }

// PersistSnapshot implementa ports.SnapshotSink.
func (m *Multi) PersistSnapshot(ctx context.Context, snap domain.AnalysisSnapshot) error {
	var (
		failed []string
		errs   []error
	)
	for _, s := range m.sinks {
		if err := s.sink.PersistSnapshot(ctx, snap); err != nil {
			m.metrics.ObserveSinkError(s.name)
			failed = append(failed, s.name)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &domain.SinkError{Sink: strings.Join(failed, ","), Err: errors.Join(errs...)}
}
