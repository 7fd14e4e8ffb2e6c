package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/tally/internal/domain/types"
)

// RankDependencies defines the interface for ranking operations.
type RankDependencies interface {
	RankEvent(ctx context.Context, eventID string) (types.EventRanking, error)
}

// RankHandler handles ranking requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRanking handles GET /events/{eventID}/ranking requests.
func (h *RankHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.deps.RankEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if ranking.Rows == nil {
		ranking.Rows = []types.RankedParticipant{}
	}
	writeJSON(w, http.StatusOK, ranking)
}
