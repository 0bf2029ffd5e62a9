package server_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/oggyb/matcha/internal/logger"
	"github.com/oggyb/matcha/internal/server"
)

type echoRequest struct {
	Text string `json:"text"`
}

type echoResponse struct {
	Text   string `json:"text"`
	Length int    `json:"length"`
}

type echoRegistrar struct{}

func (echoRegistrar) Register(s *grpc.Server) {
	desc := server.ServiceDesc("test.v1.Echo", "test/v1/echo",
		server.Unary("test.v1.Echo", "Say", func(_ context.Context, req *echoRequest) (*echoResponse, error) {
			if req.Text == "" {
				return nil, status.Error(codes.InvalidArgument, "text required")
			}
			return &echoResponse{Text: strings.ToUpper(req.Text), Length: len(req.Text)}, nil
		}),
		server.Unary("test.v1.Echo", "Panic", func(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
			panic("boom")
		}),
	)
	s.RegisterService(desc, struct{}{})
}

func dial(t *testing.T, interceptors ...grpc.UnaryServerInterceptor) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := server.NewGRPCServer(logger.Discard(), interceptors, echoRegistrar{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, srv, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(server.JSONCodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestUnaryOverJSONCodec(t *testing.T) {
	conn := dial(t)

	var resp echoResponse
	err := conn.Invoke(context.Background(), "/test.v1.Echo/Say", &echoRequest{Text: "hey"}, &resp)
	require.NoError(t, err)
	assert.Equal(t, echoResponse{Text: "HEY", Length: 3}, resp)

	err = conn.Invoke(context.Background(), "/test.v1.Echo/Say", &echoRequest{}, &resp)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRecoveryInterceptor(t *testing.T) {
	conn := dial(t)

	err := conn.Invoke(context.Background(), "/test.v1.Echo/Panic", &emptypb.Empty{}, &emptypb.Empty{})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestExtraInterceptorsRun(t *testing.T) {
	deny := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if info.FullMethod == "/test.v1.Echo/Say" {
			return nil, status.Error(codes.Unauthenticated, "no")
		}
		return handler(ctx, req)
	}
	conn := dial(t, deny)

	var resp echoResponse
	err := conn.Invoke(context.Background(), "/test.v1.Echo/Say", &echoRequest{Text: "x"}, &resp)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestHealthOverJSON(t *testing.T) {
	conn := dial(t)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestHTTPRouter(t *testing.T) {
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })

	healthy := server.NewHTTPRouter(ws, 0, map[string]server.HealthCheck{
		"db": func(context.Context) error { return nil },
	})
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	broken := server.NewHTTPRouter(ws, 0, map[string]server.HealthCheck{
		"redis": func(context.Context) error { return errors.New("down") },
	})
	rec = httptest.NewRecorder()
	broken.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis")
}

func TestHTTPRouterLimitsHandshakes(t *testing.T) {
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	router := server.NewHTTPRouter(ws, 2, nil)

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusTeapot, http.StatusTeapot, http.StatusTooManyRequests}, codes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "only the handshake is limited")
}
