package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/arbscan/internal/domain"
)

// JSONFile escribe cada snapshot en un único archivo, reemplazando el anterior.
// La escritura es atómica: temp en el mismo directorio + fsync + rename, así un
// lector nunca ve un archivo truncado.
type JSONFile struct {
	path string
}

// NewJSONFile crea un sink que escribe en path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Path devuelve la ruta del archivo destino.
func (f *JSONFile) Path() string { return f.path }

// PersistSnapshot implementa ports.SnapshotSink.
func (f *JSONFile) PersistSnapshot(ctx context.Context, snap domain.AnalysisSnapshot) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("sink.JSONFile: %w", err)
	}

	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("sink.JSONFile: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sink.JSONFile: create dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("sink.JSONFile: create temp: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("sink.JSONFile: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sink.JSONFile: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("sink.JSONFile: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("sink.JSONFile: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("sink.JSONFile: rename: %w", err)
	}
	committed = true
	return nil
}
