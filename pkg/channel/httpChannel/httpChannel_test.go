package httpChannel

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fastRetry = RetryConfig{
	MaxAttempts:     3,
	InitialBackoff:  time.Millisecond,
	MaxBackoff:      5 * time.Millisecond,
	BackoffMultiple: 2.0,
}

func newTestServer(t *testing.T, path string, handler func(context.Context, []byte) error, opts ...ServerOption) *Server {
	t.Helper()
	server := NewServer(0, path, handler, zap.NewNop(), opts...)
	t.Cleanup(func() { _ = server.Stop(context.Background()) })
	return server
}

func TestClientServerRoundTrip(t *testing.T) {
	var mu sync.Mutex
	var received [][]byte
	server := newTestServer(t, "/bridge/messages", func(ctx context.Context, msg []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, msg)
		return nil
	})

	ts := httptest.NewServer(server.GetHandler())
	defer ts.Close()

	client := NewClient(ts.URL+"/bridge/messages", zap.NewNop())
	require.NoError(t, client.Send(context.Background(), []byte(`{"method":"connect"}`)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.JSONEq(t, `{"method":"connect"}`, string(received[0]))
}

func TestServerAcceptsBeforeHandling(t *testing.T) {
	release := make(chan struct{})
	var handled int32
	server := newTestServer(t, "/bridge/messages", func(ctx context.Context, msg []byte) error {
		<-release
		atomic.AddInt32(&handled, 1)
		return nil
	})

	ts := httptest.NewServer(server.GetHandler())
	defer ts.Close()

	client := NewClient(ts.URL+"/bridge/messages", zap.NewNop(), WithRetryConfig(fastRetry))
	start := time.Now()
	require.NoError(t, client.Send(context.Background(), []byte(`{"method":"signMessage","id":"1"}`)))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&handled))

	close(release)
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&handled) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestServerHandlerErrorStillAccepted(t *testing.T) {
	var calls int32
	server := newTestServer(t, "/bridge/results", func(ctx context.Context, msg []byte) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("malformed")
	})

	ts := httptest.NewServer(server.GetHandler())
	defer ts.Close()

	client := NewClient(ts.URL+"/bridge/results", zap.NewNop(), WithRetryConfig(fastRetry))
	require.NoError(t, client.Send(context.Background(), []byte(`{}`)))
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestServerQueueFull(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	server := newTestServer(t, "/bridge/messages", func(ctx context.Context, msg []byte) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, WithWorkers(1), WithQueueSize(1))

	ts := httptest.NewServer(server.GetHandler())
	defer ts.Close()

	post := func() int {
		resp, err := http.Post(ts.URL+"/bridge/messages", "application/json", strings.NewReader(`{}`))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	// first occupies the worker, second fills the queue
	assert.Equal(t, http.StatusAccepted, post())
	require.Eventually(t, func() bool { return len(server.queue) == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, http.StatusAccepted, post())
	assert.Equal(t, http.StatusServiceUnavailable, post())
}

func TestServerRejectsAfterStop(t *testing.T) {
	server := NewServer(0, "/bridge/messages", func(ctx context.Context, msg []byte) error {
		return nil
	}, zap.NewNop())
	require.NoError(t, server.Stop(context.Background()))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/bridge/messages", strings.NewReader(`{}`))
	server.GetHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerRejectsWrongMethodAndEmptyBody(t *testing.T) {
	server := newTestServer(t, "/bridge/messages", func(ctx context.Context, msg []byte) error {
		return nil
	})

	ts := httptest.NewServer(server.GetHandler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/bridge/messages")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/bridge/messages", "application/json", http.NoBody)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerHealth(t *testing.T) {
	server := newTestServer(t, "/bridge/messages", func(ctx context.Context, msg []byte) error {
		return nil
	})

	ts := httptest.NewServer(server.GetHandler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, zap.NewNop(), WithRetryConfig(fastRetry))
	require.NoError(t, client.Send(context.Background(), []byte(`{}`)))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, zap.NewNop(), WithRetryConfig(fastRetry))
	err := client.Send(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, zap.NewNop(), WithRetryConfig(fastRetry))
	require.Error(t, client.Send(context.Background(), []byte(`{}`)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryAmbiguousFailures(t *testing.T) {
	t.Run("Should not retry a 500 since the body was read", func(t *testing.T) {
		var calls int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()

		client := NewClient(ts.URL, zap.NewNop(), WithRetryConfig(fastRetry))
		require.Error(t, client.Send(context.Background(), []byte(`{}`)))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("Should not retry a request that timed out after sending", func(t *testing.T) {
		var calls int32
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusAccepted)
		}))
		defer ts.Close()

		client := NewClient(ts.URL, zap.NewNop(),
			WithRetryConfig(fastRetry),
			WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
		)
		require.Error(t, client.Send(context.Background(), []byte(`{}`)))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestClientRetriesDialErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := NewClient("http://"+addr+"/bridge/messages", zap.NewNop(), WithRetryConfig(fastRetry))
	err = client.Send(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestClientHonoursContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, zap.NewNop(), WithRetryConfig(RetryConfig{
		MaxAttempts:     10,
		InitialBackoff:  time.Second,
		MaxBackoff:      time.Second,
		BackoffMultiple: 1,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := client.Send(ctx, []byte(`{}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClientRateLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	client := NewClient(ts.URL, zap.NewNop(), WithRateLimit(1, 1))
	require.NoError(t, client.Send(context.Background(), []byte(`{}`)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := client.Send(ctx, []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestServerStartStop(t *testing.T) {
	server := NewServer(0, "/bridge/messages", func(ctx context.Context, msg []byte) error {
		return nil
	}, zap.NewNop())
	require.NoError(t, server.Start())

	_, port, err := net.SplitHostPort(server.Addr())
	require.NoError(t, err)

	resp, err := http.Get("http://127.0.0.1:" + port + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))
}
