package chat

import (
	"google.golang.org/grpc"

	"github.com/oggyb/matcha/internal/server"
)

const ServiceName = "matcha.v1.ChatService"

// Registrar ties the Chat service into the gRPC server
type Registrar struct {
	svc *Service
}

// NewRegistrar creates a new Registrar for the Chat service
func NewRegistrar(svc *Service) *Registrar {
	return &Registrar{svc: svc}
}

// Register attaches the Chat service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	h := NewHandler(r.svc)
	s.RegisterService(server.ServiceDesc(ServiceName, "matcha/v1/chat",
		server.Unary(ServiceName, "ListConversations", h.ListConversations),
		server.Unary(ServiceName, "History", h.History),
		server.Unary(ServiceName, "Post", h.Post),
		server.Unary(ServiceName, "UnreadTotal", h.UnreadTotal),
	), h)
}
