package oracle_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/alejandrodnm/arbscan/internal/adapters/apiclient"
	"github.com/alejandrodnm/arbscan/internal/adapters/oracle"
	"github.com/alejandrodnm/arbscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server, feeds map[string]string) *oracle.Client {
	return oracle.NewClient(apiclient.New(apiclient.Options{RatePerSec: 1000, Burst: 100}), srv.URL, feeds)
}

func TestFetchPrice_Success(t *testing.T) {
	data, err := os.ReadFile("../../../testdata/fixtures/hermes_eth_latest.json")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/updates/price/latest", r.URL.Path)
		assert.Equal(t, oracle.DefaultFeeds["ETH"], r.URL.Query().Get("ids[]"))
		assert.Equal(t, "true", r.URL.Query().Get("parsed"))
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	defer srv.Close()

	p, err := newTestClient(srv, nil).FetchPrice(context.Background(), "eth")
	require.NoError(t, err)

	assert.Equal(t, "ETH", p.Symbol)
	assert.InDelta(t, 2000.0, p.Price, 1e-6)
	assert.InDelta(t, 1.5, p.ConfBand, 1e-9)
	assert.Equal(t, "2026-01-01T00:00:00Z", p.Timestamp)
}

func TestFetchPrice_UnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for unknown symbol")
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).FetchPrice(context.Background(), "DOGE")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFetchPrice_ConfiguredFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0xlink", r.URL.Query().Get("ids[]"))
		w.Write([]byte(`{"parsed":[{"id":"link","price":{"price":"1500","conf":"1","expo":-2,"publish_time":1767225600}}]}`))
	}))
	defer srv.Close()

	p, err := newTestClient(srv, map[string]string{"link": "0xlink"}).FetchPrice(context.Background(), "LINK")
	require.NoError(t, err)
	assert.InDelta(t, 15.0, p.Price, 1e-9)
}

func TestFetchPrice_EmptyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"parsed":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).FetchPrice(context.Background(), "ETH")
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	var se *domain.SourceError
	assert.False(t, errors.As(err, &se), "unavailable must not be a SourceError")
}

func TestFetchPrice_ZeroIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"parsed":[{"id":"x","price":{"price":"0","conf":"0","expo":-8,"publish_time":1767225600}}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).FetchPrice(context.Background(), "ETH")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestFetchPrice_ServerErrorIsSourceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).FetchPrice(context.Background(), "ETH")
	var se *domain.SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.SourceOracle, se.Source)
	assert.Equal(t, "ETH", se.Symbol)
	assert.False(t, domain.IsAbsence(err))
}

func TestFetchPrice_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"parsed":[{"id":"x","price":{"price":"abc","expo":-8,"publish_time":1}}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).FetchPrice(context.Background(), "ETH")
	var se *domain.SourceError
	assert.ErrorAs(t, err, &se)
}

func TestFetchPrice_MissingPublishTimeLeavesTimestampEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"parsed":[{"id":"x","price":{"price":"100","conf":"1","expo":0}}]}`))
	}))
	defer srv.Close()

	p, err := newTestClient(srv, nil).FetchPrice(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Empty(t, p.Timestamp)

	// el normalizador es quien lo descarta
	_, err = domain.NormalizeOracle(p)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
