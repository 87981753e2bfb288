package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"voice-order-service/internal/observability/metrics"
)

func TestHandler_Endpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.RecordSessionCreated()

	ready := false
	srv := httptest.NewServer(Handler(reg, func() bool { return ready }))
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(b)
	}

	if code, _ := get("/healthz"); code != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", code)
	}
	if code, _ := get("/readyz"); code != http.StatusServiceUnavailable {
		t.Errorf("readyz: expected 503 before ready, got %d", code)
	}
	ready = true
	if code, _ := get("/readyz"); code != http.StatusOK {
		t.Errorf("readyz: expected 200, got %d", code)
	}

	code, body := get("/metrics")
	if code != http.StatusOK || !strings.Contains(body, "voice_order_sessions_total 1") {
		t.Errorf("metrics: expected sessions counter, got %d", code)
	}
}

func TestUnaryServerInterceptor(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	intercept := UnaryServerInterceptor(m)
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/Method"}

	resp, err := intercept(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "resp", nil
	})
	if err != nil || resp != "resp" {
		t.Fatalf("unexpected result %v, %v", resp, err)
	}

	_, err = intercept(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.NotFound, "missing")
	})
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound passed through, got %v", err)
	}

	if got := testutil.ToFloat64(m.GRPCCalls.WithLabelValues("/svc/Method", "OK")); got != 1 {
		t.Errorf("expected 1 OK call, got %v", got)
	}
	if got := testutil.ToFloat64(m.GRPCCalls.WithLabelValues("/svc/Method", "NotFound")); got != 1 {
		t.Errorf("expected 1 NotFound call, got %v", got)
	}
}

func TestStreamServerInterceptor(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	intercept := StreamServerInterceptor(m)
	info := &grpc.StreamServerInfo{FullMethod: "/svc/Stream"}

	err := intercept(nil, nil, info, func(srv interface{}, ss grpc.ServerStream) error {
		return status.Error(codes.Unavailable, "down")
	})
	if status.Code(err) != codes.Unavailable {
		t.Errorf("expected Unavailable, got %v", err)
	}
	if got := testutil.ToFloat64(m.GRPCCalls.WithLabelValues("/svc/Stream", "Unavailable")); got != 1 {
		t.Errorf("expected 1 Unavailable call, got %v", got)
	}
}

func TestUnaryServerInterceptor_Panic(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	intercept := UnaryServerInterceptor(m)
	info := &grpc.UnaryServerInfo{FullMethod: "/svc/Boom"}

	_, err := intercept(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
	if got := testutil.ToFloat64(m.GRPCCalls.WithLabelValues("/svc/Boom", "Internal")); got != 1 {
		t.Errorf("expected 1 Internal call, got %v", got)
	}
}
