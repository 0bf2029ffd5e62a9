package interaction

import (
	"context"

	"github.com/oggyb/matcha/internal/auth"
	svcErr "github.com/oggyb/matcha/internal/errors"
	"github.com/oggyb/matcha/internal/validation"
)

type TargetRequest struct {
	UserID uint64 `json:"user_id" validate:"required"`
}

type ReportRequest struct {
	UserID uint64 `json:"user_id" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

type ListRequest struct {
	PageToken *string `json:"page_token,omitempty"`
	Limit     int     `json:"limit" validate:"gte=0,lte=100"`
}

type LikeResponse struct {
	Created bool `json:"created"`
	Match   bool `json:"match"`
}

type ChangedResponse struct {
	Changed bool `json:"changed"`
}

type RelationshipResponse struct {
	State State `json:"state"`
}

type ListResponse struct {
	Users         []UserEdge `json:"users"`
	NextPageToken *string    `json:"next_page_token,omitempty"`
}

// Handler exposes the state machine over gRPC. The actor is always the
// authenticated caller.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// caller returns the authenticated user after validating req.
func caller(ctx context.Context, req any) (uint64, error) {
	userID, err := auth.MustUserID(ctx)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	if err := validation.Struct(req); err != nil {
		return 0, svcErr.Map(err)
	}
	return userID, nil
}

func (h *Handler) Like(ctx context.Context, req *TargetRequest) (*LikeResponse, error) {
	userID, err := caller(ctx, req)
	if err != nil {
		return nil, err
	}
	res, err := h.svc.Like(ctx, userID, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &LikeResponse{Created: res.Created, Match: res.Match}, nil
}

func (h *Handler) Unlike(ctx context.Context, req *TargetRequest) (*ChangedResponse, error) {
	return h.toggle(ctx, req, h.svc.Unlike)
}

func (h *Handler) Block(ctx context.Context, req *TargetRequest) (*ChangedResponse, error) {
	return h.toggle(ctx, req, h.svc.Block)
}

func (h *Handler) Unblock(ctx context.Context, req *TargetRequest) (*ChangedResponse, error) {
	return h.toggle(ctx, req, h.svc.Unblock)
}

func (h *Handler) toggle(ctx context.Context, req *TargetRequest, op func(context.Context, uint64, uint64) (bool, error)) (*ChangedResponse, error) {
	userID, err := caller(ctx, req)
	if err != nil {
		return nil, err
	}
	changed, err := op(ctx, userID, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &ChangedResponse{Changed: changed}, nil
}

func (h *Handler) Report(ctx context.Context, req *ReportRequest) (*ChangedResponse, error) {
	userID, err := caller(ctx, req)
	if err != nil {
		return nil, err
	}
	created, err := h.svc.Report(ctx, userID, req.UserID, req.Reason)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &ChangedResponse{Changed: created}, nil
}

func (h *Handler) Relationship(ctx context.Context, req *TargetRequest) (*RelationshipResponse, error) {
	userID, err := caller(ctx, req)
	if err != nil {
		return nil, err
	}
	state, err := h.svc.Relationship(ctx, userID, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &RelationshipResponse{State: state}, nil
}

func (h *Handler) ViewProfile(ctx context.Context, req *TargetRequest) (*Profile, error) {
	userID, err := caller(ctx, req)
	if err != nil {
		return nil, err
	}
	p, err := h.svc.ViewProfile(ctx, userID, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return p, nil
}

func (h *Handler) ListLikers(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	userID, err := caller(ctx, req)
	if err != nil {
		return nil, err
	}
	users, next, err := h.svc.ListLikers(ctx, userID, req.PageToken, req.Limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &ListResponse{Users: users, NextPageToken: next}, nil
}

func (h *Handler) ListVisitors(ctx context.Context, req *ListRequest) (*ListResponse, error) {
	userID, err := caller(ctx, req)
	if err != nil {
		return nil, err
	}
	users, next, err := h.svc.ListVisitors(ctx, userID, req.PageToken, req.Limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &ListResponse{Users: users, NextPageToken: next}, nil
}
