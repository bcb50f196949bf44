// Package sink persiste los snapshots de cada ciclo: archivo JSON local,
// espejo en S3 y publicación en Redis. Multi los combina.
package sink

import (
	"encoding/json"
	"fmt"

	"github.com/alejandrodnm/arbscan/internal/domain"
)

// encodeSnapshot serializa el snapshot con el formato estable del archivo JSON.
func encodeSnapshot(snap domain.AnalysisSnapshot) ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}
