package chat

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/oggyb/matcha/internal/auth"
	svcErr "github.com/oggyb/matcha/internal/errors"
	"github.com/oggyb/matcha/internal/validation"
)

type HistoryRequest struct {
	UserID uint64 `json:"user_id" validate:"required"`
}

type PostRequest struct {
	UserID uint64 `json:"user_id" validate:"required"`
	Body   string `json:"body"`
}

type ConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type HistoryResponse struct {
	Messages []Message `json:"messages"`
}

type PostResponse struct {
	Message *Message `json:"message"`
}

type UnreadResponse struct {
	Count int64 `json:"count"`
}

// Handler exposes the conversation store over gRPC for the authenticated
// user.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListConversations(ctx context.Context, _ *emptypb.Empty) (*ConversationsResponse, error) {
	userID, err := auth.MustUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	list, err := h.svc.ListConversations(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &ConversationsResponse{Conversations: list}, nil
}

func (h *Handler) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	userID, err := auth.MustUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	msgs, err := h.svc.History(ctx, userID, req.UserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &HistoryResponse{Messages: msgs}, nil
}

// Post leaves body checks to the service so trimming happens first.
func (h *Handler) Post(ctx context.Context, req *PostRequest) (*PostResponse, error) {
	userID, err := auth.MustUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	msg, err := h.svc.Post(ctx, userID, req.UserID, req.Body)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &PostResponse{Message: msg}, nil
}

func (h *Handler) UnreadTotal(ctx context.Context, _ *emptypb.Empty) (*UnreadResponse, error) {
	userID, err := auth.MustUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	n, err := h.svc.UnreadTotal(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &UnreadResponse{Count: n}, nil
}
