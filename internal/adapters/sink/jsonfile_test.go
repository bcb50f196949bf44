package sink_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/arbscan/internal/adapters/sink"
	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func makeSnapshot(opps ...domain.ArbitrageOpportunity) domain.AnalysisSnapshot {
	snap := domain.NewSnapshot(at,
		domain.AnalysisConfig{MinSpreadPercentage: 0.02, MinConfidence: 0.7, MaxPriceAge: 300},
		[]domain.NormalizedPrice{{Symbol: "ETH", Price: 2000, Timestamp: "2026-01-01T12:00:00Z", Source: domain.SourceOracle, Confidence: 0.8}},
		nil,
		opps,
		[]string{"ETH"},
	)
	snap.Metadata.CycleID = "c0ffee"
	return snap
}

func TestJSONFile_WritesSnapshotShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "arbitrage-analysis.json")
	f := sink.NewJSONFile(path)

	require.NoError(t, f.PersistSnapshot(context.Background(), makeSnapshot()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"lastUpdated", "analysisConfig", "priceData", "opportunities", "summary", "metadata"} {
		assert.Contains(t, doc, key)
	}
	assert.Equal(t, []any{}, doc["opportunities"])
	assert.Equal(t, "2026-01-01T12:00:00Z", doc["lastUpdated"])

	priceData := doc["priceData"].(map[string]any)
	assert.Len(t, priceData["oracle"], 1)
	assert.Equal(t, []any{}, priceData["pool"])
}

func TestJSONFile_ReplacesPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	f := sink.NewJSONFile(path)
	ctx := context.Background()

	require.NoError(t, f.PersistSnapshot(ctx, makeSnapshot(domain.ArbitrageOpportunity{BaseSymbol: "ETH", EstimatedProfit: 51.3})))
	require.NoError(t, f.PersistSnapshot(ctx, makeSnapshot()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var snap domain.AnalysisSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Empty(t, snap.Opportunities)

	// No quedan temporales en el directorio.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJSONFile_FailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")
	f := sink.NewJSONFile(path)
	require.NoError(t, f.PersistSnapshot(context.Background(), makeSnapshot()))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, f.PersistSnapshot(ctx, makeSnapshot(domain.ArbitrageOpportunity{BaseSymbol: "BTC"})))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestJSONFile_UnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	f := sink.NewJSONFile(filepath.Join(blocker, "snapshot.json"))
	assert.Error(t, f.PersistSnapshot(context.Background(), makeSnapshot()))
}
