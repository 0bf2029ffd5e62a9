package discovery

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/oggyb/matcha/internal/auth"
	svcErr "github.com/oggyb/matcha/internal/errors"
	"github.com/oggyb/matcha/internal/validation"
)

type SearchRequest struct {
	Filter
}

type CandidatesResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Handler exposes discovery over gRPC for the authenticated viewer.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Suggestions(ctx context.Context, _ *emptypb.Empty) (*CandidatesResponse, error) {
	userID, err := auth.MustUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	list, err := h.svc.Suggestions(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &CandidatesResponse{Candidates: list}, nil
}

func (h *Handler) Search(ctx context.Context, req *SearchRequest) (*CandidatesResponse, error) {
	userID, err := auth.MustUserID(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	list, err := h.svc.Search(ctx, userID, req.Filter)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return &CandidatesResponse{Candidates: list}, nil
}
