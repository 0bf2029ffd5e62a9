package interaction

import (
	"google.golang.org/grpc"

	"github.com/oggyb/matcha/internal/server"
)

const ServiceName = "matcha.v1.InteractionService"

// Registrar ties the Interaction service into the gRPC server
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the Interaction service
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the Interaction service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	h := NewHandler(r.svc)
	s.RegisterService(server.ServiceDesc(ServiceName, "matcha/v1/interaction",
		server.Unary(ServiceName, "Like", h.Like),
		server.Unary(ServiceName, "Unlike", h.Unlike),
		server.Unary(ServiceName, "Block", h.Block),
		server.Unary(ServiceName, "Unblock", h.Unblock),
		server.Unary(ServiceName, "Report", h.Report),
		server.Unary(ServiceName, "Relationship", h.Relationship),
		server.Unary(ServiceName, "ViewProfile", h.ViewProfile),
		server.Unary(ServiceName, "ListLikers", h.ListLikers),
		server.Unary(ServiceName, "ListVisitors", h.ListVisitors),
	), h)
}
