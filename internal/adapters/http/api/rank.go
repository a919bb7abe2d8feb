package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/flatboard/internal/domain/model"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	ReadRanks(ctx context.Context, name string) map[model.Skill]int
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

type rankResponse struct {
	Name  string         `json:"name"`
	Ranks map[string]int `json:"ranks"`
}

// HandleGetRank handles GET /rank/{name} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/rank/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	ranks := h.deps.ReadRanks(r.Context(), name)
	if len(ranks) == 0 {
		writeError(w, http.StatusNotFound, "not_found", ErrNotRanked)
		return
	}
	out := make(map[string]int, len(ranks))
	for skill, pos := range ranks {
		out[skill.String()] = pos
	}
	writeJSON(w, http.StatusOK, rankResponse{Name: name, Ranks: out})
}
