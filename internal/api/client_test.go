package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/matheuskafuri/stocktracker/internal/api"
)

func newClient(t *testing.T, baseURL string, cfg api.Config, logger *zap.Logger) *api.Client {
	t.Helper()
	cfg.BaseURL = baseURL
	c, err := api.New(cfg, api.WithLogger(logger))
	require.NoError(t, err)
	return c
}

func fastConfig() api.Config {
	return api.Config{Timeout: time.Second, RetryAttempts: 1, RetryDelay: time.Millisecond}
}

func TestGetDecodesBody(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/stocks", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":1}]}`))
	}))
	t.Cleanup(ts.Close)

	c := newClient(t, ts.URL, fastConfig(), nil)

	var out struct {
		Data []struct {
			ID int `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, c.Get(context.Background(), "/stocks", nil, &out))
	require.Len(t, out.Data, 1)
	require.Equal(t, 1, out.Data[0].ID)
}

func TestRequestSendsQueryAndResolvesBasePath(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/stocks", r.URL.Path)
		require.Equal(t, "aapl", r.URL.Query().Get("ticker"))
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	}))
	t.Cleanup(ts.Close)

	c := newClient(t, ts.URL+"/v1", fastConfig(), nil)

	type reply struct {
		Message string `json:"message"`
	}
	got, err := api.Request[reply](context.Background(), c, "stocks", url.Values{"ticker": {"aapl"}})
	require.NoError(t, err)
	require.Equal(t, "ok", got.Message)
}

func TestRetryOnceThenSucceed(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(ts.Close)

	core, logs := observer.New(zapcore.WarnLevel)
	c := newClient(t, ts.URL, fastConfig(), zap.New(core))

	require.NoError(t, c.Get(context.Background(), "/stocks", nil, nil))
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, 1, logs.FilterMessage("api request failed").Len())
}

func TestRetryIsBounded(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"database unavailable"}`))
	}))
	t.Cleanup(ts.Close)

	core, logs := observer.New(zapcore.WarnLevel)
	c := newClient(t, ts.URL, fastConfig(), zap.New(core))

	err := c.Get(context.Background(), "/stocks", nil, nil)
	require.Error(t, err)

	var statusErr *api.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.Status)
	require.Equal(t, "database unavailable", statusErr.Message)
	require.Equal(t, int32(2), calls.Load())

	entries := logs.FilterMessage("api request failed").All()
	require.Len(t, entries, 2)
	require.Equal(t, int64(1), entries[0].ContextMap()["attempt"])
	require.Equal(t, int64(2), entries[1].ContextMap()["attempt"])
	require.Equal(t, int64(500), entries[1].ContextMap()["status"])
}

func TestNoRetryWhenDisabled(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	cfg := fastConfig()
	cfg.RetryAttempts = 0
	c := newClient(t, ts.URL, cfg, nil)

	require.Error(t, c.Get(context.Background(), "/stocks", nil, nil))
	require.Equal(t, int32(1), calls.Load())
}

func TestClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no se encontraron acciones"}`))
	}))
	t.Cleanup(ts.Close)

	c := newClient(t, ts.URL, fastConfig(), nil)

	err := c.Get(context.Background(), "/stocks", nil, nil)
	var statusErr *api.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.Status)
	require.Equal(t, "no se encontraron acciones", statusErr.Message)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, "http_404", api.Kind(err))
}

func TestUnstructuredErrorBody(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("  forbidden by proxy \n"))
	}))
	t.Cleanup(ts.Close)

	c := newClient(t, ts.URL, fastConfig(), nil)

	err := c.Get(context.Background(), "/stocks", nil, nil)
	var statusErr *api.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "forbidden by proxy", statusErr.Message)
}

func TestPostIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(ts.Close)

	c := newClient(t, ts.URL, fastConfig(), nil)

	require.Error(t, c.Do(context.Background(), http.MethodPost, "/stocks/update", nil, nil))
	require.Equal(t, int32(1), calls.Load())
}

func TestTimeoutIsClassified(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(ts.Close)

	cfg := fastConfig()
	cfg.Timeout = 20 * time.Millisecond
	c := newClient(t, ts.URL, cfg, nil)

	err := c.Get(context.Background(), "/stocks", nil, nil)
	var timeoutErr *api.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, 20*time.Millisecond, timeoutErr.Timeout)
	require.Equal(t, "timeout", api.Kind(err))
	require.Equal(t, int32(2), calls.Load())
}

func TestNetworkErrorIsClassified(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := ts.URL
	ts.Close()

	c := newClient(t, addr, fastConfig(), nil)

	err := c.Get(context.Background(), "/stocks", nil, nil)
	var netErr *api.NetworkError
	require.ErrorAs(t, err, &netErr)
	require.Equal(t, "network", api.Kind(err))
}

func TestInvalidJSONIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	t.Cleanup(ts.Close)

	c := newClient(t, ts.URL, fastConfig(), nil)

	var out map[string]any
	err := c.Get(context.Background(), "/stocks", nil, &out)
	require.True(t, errors.Is(err, api.ErrInvalidResponseShape))
	require.Equal(t, int32(1), calls.Load())
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(ts.Close)

	cfg := fastConfig()
	cfg.RetryDelay = time.Hour
	c := newClient(t, ts.URL, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Get(ctx, "/stocks", nil, nil)
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestNewValidatesBaseURL(t *testing.T) {
	t.Parallel()

	_, err := api.New(api.Config{BaseURL: "ftp://example.com"})
	require.Error(t, err)

	c, err := api.New(api.Config{})
	require.NoError(t, err)
	require.Equal(t, api.DefaultBaseURL, c.Config().BaseURL)
	require.Equal(t, api.DefaultTimeout, c.Config().Timeout)
}
