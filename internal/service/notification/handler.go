package notification

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/oggyb/matcha/internal/auth"
	svcErr "github.com/oggyb/matcha/internal/errors"
	"github.com/oggyb/matcha/internal/validation"
)

type ListRequest struct {
	Limit int `json:"limit" validate:"gte=0,lte=100"`
}

type ListResponse struct {
	Notifications []View `json:"notifications"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// Handler exposes the dispatcher over gRPC. The caller is always the
// authenticated user; nobody reads another user's notifications.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	userID, err := auth.MustUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}

	views, err := h.svc.List(ctx, userID, req.Limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &ListResponse{Notifications: views}, nil
}

func (h *Handler) UnreadCount(ctx context.Context, _ *emptypb.Empty) (*CountResponse, error) {
	userID, err := auth.MustUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	n, err := h.svc.UnreadCount(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &CountResponse{Count: n}, nil
}

func (h *Handler) MarkAllRead(ctx context.Context, _ *emptypb.Empty) (*MarkAllReadResponse, error) {
	userID, err := auth.MustUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	n, err := h.svc.MarkAllRead(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &MarkAllReadResponse{Updated: n}, nil
}
