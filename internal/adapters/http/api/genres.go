package api

import (
	"context"
	"net/http"

	"github.com/okian/elobattle/internal/domain/types"
)

// GenreDependencies defines the interface for genre summaries.
type GenreDependencies interface {
	Genres(ctx context.Context) ([]types.GenreStat, error)
}

// GenresHandler handles genre summary requests.
type GenresHandler struct {
	deps GenreDependencies
}

// NewGenresHandler creates a new genres handler.
func NewGenresHandler(deps GenreDependencies) *GenresHandler {
	return &GenresHandler{deps: deps}
}

// HandleGetGenres handles GET /genres requests.
func (h *GenresHandler) HandleGetGenres(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_genres"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats, err := h.deps.Genres(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
