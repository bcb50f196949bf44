package scanner

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchEach_PreservesOrder(t *testing.T) {
	keys := []string{"a", "b", "c", "d", "e", "f"}
	results := fetchEach(context.Background(), keys, 3, 0, func(_ context.Context, k string) (string, error) {
		if k == "c" {
			return "", errors.New("boom")
		}
		return strings.ToUpper(k), nil
	})

	require.Len(t, results, len(keys))
	for i, k := range keys {
		if k == "c" {
			assert.Error(t, results[i].err)
			continue
		}
		assert.NoError(t, results[i].err)
		assert.Equal(t, strings.ToUpper(k), results[i].value)
	}
}

func TestFetchEach_BoundedWorkers(t *testing.T) {
	var inFlight, peak atomic.Int32
	keys := make([]string, 20)
	for i := range keys {
		keys[i] = string(rune('a' + i))
	}

	fetchEach(context.Background(), keys, 2, 0, func(_ context.Context, _ string) (int, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFetchEach_PerCallTimeout(t *testing.T) {
	results := fetchEach(context.Background(), []string{"slow"}, 1, 10*time.Millisecond,
		func(ctx context.Context, _ string) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
	assert.ErrorIs(t, results[0].err, context.DeadlineExceeded)
}

func TestFetchEach_CancelledParentSkipsCalls(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := fetchEach(ctx, []string{"a", "b"}, 1, 0, func(_ context.Context, _ string) (int, error) {
		calls.Add(1)
		return 1, nil
	})
	assert.Equal(t, int32(0), calls.Load())
	assert.ErrorIs(t, results[0].err, context.Canceled)
}

func TestFetchEach_Empty(t *testing.T) {
	assert.Empty(t, fetchEach(context.Background(), nil, 0, 0, func(context.Context, string) (int, error) {
		return 0, nil
	}))
}
