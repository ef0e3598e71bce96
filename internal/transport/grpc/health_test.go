package grpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/abgdnv/gomarketplace/internal/cart"
	"github.com/abgdnv/gomarketplace/internal/kv"
	"github.com/abgdnv/gomarketplace/pkg/server"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// setupTestEnvironment starts a gRPC server with the health service on an in-memory listener.
func setupTestEnvironment(t *testing.T, pinger Pinger) (*Health, healthpb.HealthClient) {
	t.Helper()

	store := cart.NewStore(kv.NewMemory(), cart.Options{Logger: discard})
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	<-store.Ready()

	h := NewHealth(store, pinger, time.Second, discard)
	lis := bufconn.Listen(1024 * 1024)
	srv := server.NewGRPCServer(discard, false, h.Register)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough://bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return h, healthpb.NewHealthClient(conn)
}

func checkStatus(t *testing.T, client healthpb.HealthClient) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth(t *testing.T) {
	testCases := []struct {
		name     string
		pingErr  error
		expected healthpb.HealthCheckResponse_ServingStatus
	}{
		{name: "storage reachable", expected: healthpb.HealthCheckResponse_SERVING},
		{name: "storage down", pingErr: errors.New("connection refused"), expected: healthpb.HealthCheckResponse_NOT_SERVING},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			pinger := new(mockPinger)
			pinger.On("Ping", mock.Anything).Return(tc.pingErr)
			h, client := setupTestEnvironment(t, pinger)
			require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, client), "not serving before the first check")

			// when
			got := h.Check(context.Background())

			// then
			require.Equal(t, tc.expected, got)
			require.Equal(t, tc.expected, checkStatus(t, client))
			pinger.AssertExpectations(t)
		})
	}
}

func TestHealth_NotReadyWhileRehydrating(t *testing.T) {
	// given
	gate := make(chan struct{})
	store := cart.NewStore(slowStorage{Memory: kv.NewMemory(), gate: gate}, cart.Options{Logger: discard})
	t.Cleanup(func() {
		close(gate)
		_ = store.Close(context.Background())
	})
	pinger := new(mockPinger)
	h := NewHealth(store, pinger, time.Second, discard)

	// when
	got := h.Check(context.Background())

	// then
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, got)
	pinger.AssertNotCalled(t, "Ping", mock.Anything)
}

func TestHealth_RunStopsServing(t *testing.T) {
	pinger := new(mockPinger)
	pinger.On("Ping", mock.Anything).Return(nil)
	h, client := setupTestEnvironment(t, pinger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool {
		return checkStatus(t, client) == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkStatus(t, client))
}

type slowStorage struct {
	*kv.Memory
	gate chan struct{}
}

func (s slowStorage) Get(ctx context.Context, key string) (string, error) {
	select {
	case <-s.gate:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return s.Memory.Get(ctx, key)
}
