package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/arbscan/config"
	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/alejandrodnm/arbscan/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSinks_JSONAndSQLite(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.SnapshotPath = filepath.Join(t.TempDir(), "out", "snapshot.json")
	cfg.Storage.DSN = ":memory:"

	set, err := buildSinks(context.Background(), cfg, metrics.New())
	require.NoError(t, err)
	defer set.Close()

	assert.Equal(t, 2, set.multi.Len())

	snap := domain.NewSnapshot(
		mustTime(t, "2026-01-01T00:00:00Z"),
		domain.AnalysisConfig{MinSpreadPercentage: 0.02, MinConfidence: 0.7, MaxPriceAge: 300},
		nil, nil, nil, []string{"WETH"},
	)
	snap.Metadata.CycleID = "c1"
	require.NoError(t, set.Sink().PersistSnapshot(context.Background(), snap))

	_, err = os.Stat(cfg.Storage.SnapshotPath)
	assert.NoError(t, err)
}

func TestBuildSinks_NoDSNSkipsHistory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.SnapshotPath = filepath.Join(t.TempDir(), "snapshot.json")

	set, err := buildSinks(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer set.Close()
	assert.Equal(t, 1, set.multi.Len())
}

func TestSinkSet_NilIsDryRun(t *testing.T) {
	var set *sinkSet
	assert.Nil(t, set.Sink())
	set.Close()
}

func TestOpenHistory_EmptyDSN(t *testing.T) {
	_, err := openHistory("")
	assert.Error(t, err)
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := domain.ParseTimestamp(s)
	require.NoError(t, err)
	return v
}
