package notification

import (
	"google.golang.org/grpc"

	"github.com/oggyb/matcha/internal/server"
)

const ServiceName = "matcha.v1.NotificationService"

// Registrar ties the Notification service into the gRPC server
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the Notification service
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the Notification service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	h := NewHandler(r.svc)
	s.RegisterService(server.ServiceDesc(ServiceName, "matcha/v1/notification",
		server.Unary(ServiceName, "List", h.List),
		server.Unary(ServiceName, "UnreadCount", h.UnreadCount),
		server.Unary(ServiceName, "MarkAllRead", h.MarkAllRead),
	), h)
}
