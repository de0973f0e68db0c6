package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/retail/internal/health"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

func discardLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "metrics-test")
}

func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

// findFreePort находит свободный порт для тестов
func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}

// serveMetrics поднимает metrics-сервер и ждёт, пока он начнёт отвечать.
func serveMetrics(t *testing.T, h *healthcheck.Handler) (string, context.CancelFunc) {
	t.Helper()
	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	startMetricsServer(ctx, addr, discardLogger(), h)
	base := "http://" + addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/livez")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	return base, cancel
}

func get(t *testing.T, url string) (int, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestMetricsServer_HealthStates(t *testing.T) {
	cases := []struct {
		name        string
		storage     func(t *testing.T) storageDependencies
		maxAge      time.Duration
		wantStatus  healthcheck.Status
		wantHealthz int
		wantReadyz  int
	}{
		{
			name: "healthy",
			storage: func(*testing.T) storageDependencies {
				s := newMemoryStorage()
				s.storageChecker = healthcheck.PingChecker(stubPinger{})
				return s
			},
			maxAge:      time.Hour,
			wantStatus:  healthcheck.StatusHealthy,
			wantHealthz: http.StatusOK,
			wantReadyz:  http.StatusOK,
		},
		{
			name: "stale outbox backlog is degraded",
			storage: func(t *testing.T) storageDependencies {
				s := newMemoryStorage()
				_, err := s.outboxRepo.Enqueue(domain.OutboxMessage{
					ID:            "evt-1",
					AggregateType: domain.AggregateTypeOrder,
					AggregateID:   "order-1",
					EventType:     domain.EventTypeOrderFilled,
					Payload:       []byte(`{}`),
				})
				require.NoError(t, err)
				time.Sleep(5 * time.Millisecond)
				return s
			},
			maxAge:      time.Millisecond,
			wantStatus:  healthcheck.StatusDegraded,
			wantHealthz: http.StatusOK,
			wantReadyz:  http.StatusOK,
		},
		{
			name: "storage ping failure is unhealthy",
			storage: func(*testing.T) storageDependencies {
				s := newMemoryStorage()
				s.storageChecker = healthcheck.PingChecker(stubPinger{err: errors.New("connection refused")})
				return s
			},
			maxAge:      time.Hour,
			wantStatus:  healthcheck.StatusUnhealthy,
			wantHealthz: http.StatusServiceUnavailable,
			wantReadyz:  http.StatusServiceUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base, _ := serveMetrics(t, newHealthHandler(tc.storage(t), tc.maxAge))

			code, body := get(t, base+"/healthz")
			assert.Equal(t, tc.wantHealthz, code)
			var resp healthcheck.Response
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Equal(t, tc.wantStatus, resp.Status)

			code, _ = get(t, base+"/readyz")
			assert.Equal(t, tc.wantReadyz, code)

			code, _ = get(t, base+"/livez")
			assert.Equal(t, http.StatusOK, code)
		})
	}
}

func TestMetricsServer_ExposesPrometheus(t *testing.T) {
	base, _ := serveMetrics(t, newHealthHandler(newMemoryStorage(), time.Hour))

	code, body := get(t, base+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetricsServer_StopsOnContextCancel(t *testing.T) {
	base, cancel := serveMetrics(t, newHealthHandler(newMemoryStorage(), time.Hour))
	cancel()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/livez")
		if err != nil {
			return true
		}
		_ = resp.Body.Close()
		return false
	}, 2*time.Second, 20*time.Millisecond)
}

func TestShutdownHTTPWithTimeout(t *testing.T) {
	assert.NotPanics(t, func() {
		shutdownHTTPWithTimeout(nil, time.Second, discardLogger())
	})

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: http.HandlerFunc(healthcheck.Live), ReadHeaderTimeout: time.Second}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(lis) }()

	shutdownHTTPWithTimeout(srv, time.Second, discardLogger())

	select {
	case err := <-served:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
