package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/flatboard/internal/domain/model"
	"github.com/okian/flatboard/internal/domain/types"
)

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	ReadLeaderboardPage(ctx context.Context, skill model.Skill, page, size int) []types.PlayerStat
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps    LeaderboardDependencies
	maxSize int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxSize int) *LeaderboardHandler {
	return &LeaderboardHandler{
		deps:    deps,
		maxSize: maxSize,
	}
}

// Entry is one ranked row of a leaderboard page.
type Entry struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type pageResponse struct {
	Skill   string  `json:"skill"`
	Page    int     `json:"page"`
	Size    int     `json:"size"`
	Entries []Entry `json:"entries"`
}

// HandleGetPage handles GET /leaderboard/{skill}?page=N&size=M requests.
// power_level selects the aggregate ranking.
func (h *LeaderboardHandler) HandleGetPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/leaderboard/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	skill, ok := model.ParseSkill(name)
	if !ok || (skill != model.PowerLevel && skill.IsChild()) {
		writeError(w, http.StatusBadRequest, "unknown_skill", fmt.Errorf("%w: %s", ErrUnknownSkill, name))
		return
	}

	page, err := intParam(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	size, err := intParam(r, "size", DefaultPageSize)
	if err != nil || size < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if size > h.maxSize {
		writeError(w, http.StatusBadRequest, "limit_exceeded", fmt.Errorf("%w: size above %d", ErrBadRequest, h.maxSize))
		return
	}
	if page < 1 {
		page = 1
	}

	stats := h.deps.ReadLeaderboardPage(r.Context(), skill, page, size)
	entries := make([]Entry, len(stats))
	for i, s := range stats {
		entries[i] = Entry{Rank: (page-1)*size + i + 1, Name: s.Name, Value: s.Value}
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Skill:   skill.String(),
		Page:    page,
		Size:    size,
		Entries: entries,
	})
}

func intParam(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, key)
	}
	return n, nil
}
