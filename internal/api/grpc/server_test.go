package grpcapi

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"voice-order-service/internal/observability/metrics"
	"voice-order-service/internal/service/order"
	"voice-order-service/internal/service/repetition"
)

func newTestServer(t *testing.T) (*Server, *grpc.ClientConn) {
	t.Helper()
	srv := NewServer("bufnet", Deps{
		Suppressor: repetition.New(),
		Extractor:  order.New(),
		Metrics:    metrics.NewMetrics(prometheus.NewRegistry()),
	})

	lis := bufconn.Listen(1 << 20)
	go srv.Serve(lis)
	t.Cleanup(srv.GracefulStop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return srv, conn
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestHealth(t *testing.T) {
	srv, conn := newTestServer(t)
	client := grpc_health_v1.NewHealthClient(conn)

	resp, err := client.Check(testCtx(t), &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("expected NOT_SERVING before ready, got %v", resp.Status)
	}

	srv.SetServing(true)
	resp, err = client.Check(testCtx(t), &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("expected SERVING, got %v", resp.Status)
	}
}

func TestClean(t *testing.T) {
	_, conn := newTestServer(t)

	req, _ := structpb.NewStruct(map[string]interface{}{"text": "I I want want rice. I want rice."})
	resp := &structpb.Struct{}
	if err := conn.Invoke(testCtx(t), "/"+ServiceName+"/Clean", req, resp); err != nil {
		t.Fatalf("invoke: %v", err)
	}

	fields := resp.GetFields()
	if got := fields["cleanedText"].GetStringValue(); got != "I want rice." {
		t.Errorf("expected cleaned text %q, got %q", "I want rice.", got)
	}
	if got := fields["language"].GetStringValue(); got != "en" {
		t.Errorf("expected language en, got %q", got)
	}
	if got := fields["segmentsDropped"].GetNumberValue(); got != 1 {
		t.Errorf("expected 1 dropped segment, got %v", got)
	}
}

func TestExtractOrder(t *testing.T) {
	_, conn := newTestServer(t)

	req, _ := structpb.NewStruct(map[string]interface{}{"text": "Premium: 8x10 5kg, 10x12 3kg"})
	resp := &structpb.Struct{}
	if err := conn.Invoke(testCtx(t), "/"+ServiceName+"/ExtractOrder", req, resp); err != nil {
		t.Fatalf("invoke: %v", err)
	}

	cats := resp.GetFields()["order"].GetStructValue().GetFields()["categories"].GetListValue().GetValues()
	if len(cats) != 1 {
		t.Fatalf("expected 1 category, got %d", len(cats))
	}
	cat := cats[0].GetStructValue().GetFields()
	if got := cat["name"].GetStringValue(); got != "Premium" {
		t.Errorf("expected category Premium, got %q", got)
	}
	items := cat["items"].GetListValue().GetValues()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	item := items[1].GetStructValue().GetFields()
	if item["dimension"].GetStringValue() != "10x12" || item["quantity"].GetStringValue() != "3 kg" {
		t.Errorf("unexpected item %v", item)
	}
	if resp.GetFields()["rendered"].GetStringValue() == "" {
		t.Error("expected rendered order")
	}
}

func TestTextRequired(t *testing.T) {
	_, conn := newTestServer(t)

	tests := []struct {
		name   string
		fields map[string]interface{}
	}{
		{"missing", map[string]interface{}{}},
		{"not a string", map[string]interface{}{"text": 42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := structpb.NewStruct(tt.fields)
			err := conn.Invoke(testCtx(t), "/"+ServiceName+"/Clean", req, &structpb.Struct{})
			if status.Code(err) != codes.InvalidArgument {
				t.Errorf("expected InvalidArgument, got %v", err)
			}
		})
	}
}
