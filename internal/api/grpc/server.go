// Package grpcapi exposes the text pipeline over gRPC. Requests and
// responses are google.protobuf.Struct, so the service is registered
// from a hand-written ServiceDesc.
package grpcapi

import (
	"context"
	"encoding/json"
	"net"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"voice-order-service/internal/observability"
	"voice-order-service/internal/observability/metrics"
	"voice-order-service/internal/service/order"
	"voice-order-service/internal/service/repetition"
)

// ServiceName is the fully qualified name of the text service.
const ServiceName = "voice.order.v1.TextService"

// Deps are the components the gRPC surface calls into.
type Deps struct {
	Suppressor *repetition.Suppressor
	Extractor  *order.Extractor
	Metrics    *metrics.Metrics
}

// TextServer implements voice.order.v1.TextService.
type TextServer struct {
	deps Deps
}

// Clean runs repetition suppression on {"text": ...}.
func (s *TextServer) Clean(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text, err := textField(req)
	if err != nil {
		return nil, err
	}
	res := s.deps.Suppressor.SuppressDetailed(text)
	s.deps.Metrics.RecordSuppression(res.WordsDropped, res.SegmentsDropped)

	return structpb.NewStruct(map[string]interface{}{
		"cleanedText":     res.Text,
		"language":        res.Language.Code(),
		"wordsDropped":    res.WordsDropped,
		"segmentsDropped": res.SegmentsDropped,
	})
}

// ExtractOrder extracts a structured order from {"text": ...}.
func (s *TextServer) ExtractOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text, err := textField(req)
	if err != nil {
		return nil, err
	}
	o := s.deps.Extractor.Extract(text)
	payload := struct {
		Order    order.StructuredOrder `json:"order"`
		Rendered string                `json:"rendered"`
	}{Order: o}
	if strings.TrimSpace(text) != "" {
		payload.Rendered = order.RenderOrder(o, text)
	}
	if payload.Order.Categories == nil {
		payload.Order.Categories = []order.Category{}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode order: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode order: %v", err)
	}
	return out, nil
}

func textField(req *structpb.Struct) (string, error) {
	v, ok := req.GetFields()["text"]
	if !ok {
		return "", status.Error(codes.InvalidArgument, "text is required")
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", status.Error(codes.InvalidArgument, "text must be a string")
	}
	return sv.StringValue, nil
}

type textService interface {
	Clean(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExtractOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(textService, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(textService), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(textService), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var textServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*textService)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Clean", textService.Clean),
		unaryHandler("ExtractOrder", textService.ExtractOrder),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "google/protobuf/struct.proto",
}

// Server is the gRPC listener: text service, health and reflection.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	addr   string
}

// NewServer registers every service on a fresh grpc.Server. The health
// status starts at NOT_SERVING until SetServing is called.
func NewServer(addr string, deps Deps) *Server {
	g := grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(deps.Metrics)),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(deps.Metrics)),
	)

	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(g, hs)
	g.RegisterService(&textServiceDesc, &TextServer{deps: deps})

	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(g)

	s := &Server{grpc: g, health: hs, addr: addr}
	s.SetServing(false)
	return s
}

// SetServing flips the health status of the server and the text service.
func (s *Server) SetServing(serving bool) {
	st := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		st = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve accepts connections on lis until Stop or GracefulStop.
func (s *Server) Serve(lis net.Listener) error {
	log.Info().Str("addr", lis.Addr().String()).Msg("Starting gRPC server")
	if err := s.grpc.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// GracefulStop marks the server unhealthy and drains in-flight calls.
func (s *Server) GracefulStop() {
	log.Info().Msg("Shutting down gRPC server")
	s.SetServing(false)
	s.grpc.GracefulStop()
}
