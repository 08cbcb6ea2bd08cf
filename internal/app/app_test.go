package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cryptodash/config"
	"cryptodash/internal/dashboard"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const marketsBody = `[
  {"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":67000,"market_cap":1320000000000,"market_cap_rank":1,
   "price_change_percentage_24h":1.5,"price_change_percentage_7d_in_currency":3.4,"sparkline_in_7d":{"price":[100,110,120]}},
  {"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3500,"market_cap":420000000000,"market_cap_rank":2,
   "price_change_percentage_24h":-0.5,"sparkline_in_7d":{"price":[50,45]}}
]`

func fakeUpstream(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-cg-demo-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(marketsBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, upstream string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)
	cfg.CoinGecko.REST.BaseURL = upstream
	cfg.CoinGecko.REST.APIKey = "test-key"
	cfg.Server.Addr = "127.0.0.1:0"
	return cfg
}

func getView(t *testing.T, h http.Handler) dashboard.View {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?period=7d", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var v dashboard.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// go test -v --run TestAppServesDashboard
func TestAppServesDashboard(t *testing.T) {
	var calls atomic.Int32
	upstream := fakeUpstream(t, &calls)

	a, err := New(testConfig(t, upstream.URL), zap.NewNop())
	require.NoError(t, err)
	h := a.Handler()

	v := getView(t, h)
	assert.Equal(t, dashboard.StateReady, v.State)
	require.Len(t, v.Cards, 2)
	assert.Equal(t, "BTC", v.Cards[0].Symbol)
	assert.Equal(t, "CoinGecko", v.Footer.Provider)
	assert.Len(t, v.Comparison.Summary, 2)

	// Within the fresh window the cached collection is reused.
	getView(t, h)
	assert.Equal(t, int32(1), calls.Load())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/selection/ethereum/toggle", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Len(t, v.Comparison.Summary, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(2), calls.Load())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Len(t, v.Comparison.Summary, 1, "same ids keep the selection across refreshes")
}

// go test -v --run TestAppWithRedisCache
func TestAppWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	var calls atomic.Int32
	upstream := fakeUpstream(t, &calls)

	cfg := testConfig(t, upstream.URL)
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = mr.Addr()

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.close()

	v := getView(t, a.Handler())
	assert.Equal(t, dashboard.StateReady, v.State)
	assert.Len(t, mr.Keys(), 1)
}

// go test -v --run TestAppRedisUnavailable
func TestAppRedisUnavailable(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Cache.Backend = "redis"
	cfg.Cache.Redis.Addr = "127.0.0.1:1"

	_, err := New(cfg, zap.NewNop())
	assert.Error(t, err)
}

// go test -v --run TestAppRunPollsUntilCancelled
func TestAppRunPollsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	upstream := fakeUpstream(t, &calls)

	cfg := testConfig(t, upstream.URL)
	cfg.Poll.Interval = 50 * time.Millisecond
	cfg.Poll.StaleTime = 40 * time.Millisecond

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
