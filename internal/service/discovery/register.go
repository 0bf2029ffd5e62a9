package discovery

import (
	"google.golang.org/grpc"

	"github.com/oggyb/matcha/internal/server"
)

const ServiceName = "matcha.v1.DiscoveryService"

// Registrar ties the Discovery service into the gRPC server
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the Discovery service
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the Discovery service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	h := NewHandler(r.svc)
	s.RegisterService(server.ServiceDesc(ServiceName, "matcha/v1/discovery",
		server.Unary(ServiceName, "Suggestions", h.Suggestions),
		server.Unary(ServiceName, "Search", h.Search),
	), h)
}
