package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/elobattle/internal/app"
)

// OutcomeDependencies defines the interface for submitting judgements.
type OutcomeDependencies interface {
	// Submit queues a judgement and reports whether it was a duplicate.
	Submit(ctx context.Context, sub service.Submission) (bool, error)
}

// outcomeRequest is the body of POST /outcomes. Outcome is one of the
// quantized labels; Score is an alternative for custom scores in [0,1].
type outcomeRequest struct {
	MatchupID string   `json:"matchup_id"`
	ItemA     string   `json:"item_a"`
	ItemB     string   `json:"item_b"`
	Outcome   string   `json:"outcome,omitempty"`
	Score     *float64 `json:"score,omitempty"`
}

func (o outcomeRequest) validate() error {
	switch {
	case strings.TrimSpace(o.MatchupID) == "":
		return errors.New("missing matchup_id")
	case strings.TrimSpace(o.ItemA) == "":
		return errors.New("missing item_a")
	case strings.TrimSpace(o.ItemB) == "":
		return errors.New("missing item_b")
	case strings.TrimSpace(o.Outcome) == "" && o.Score == nil:
		return errors.New("missing outcome or score")
	}
	return nil
}

// OutcomesHandler handles outcome submissions.
type OutcomesHandler struct {
	deps OutcomeDependencies
}

// NewOutcomesHandler creates a new outcomes handler.
func NewOutcomesHandler(deps OutcomeDependencies) *OutcomesHandler {
	return &OutcomesHandler{deps: deps}
}

// HandlePostOutcome handles POST /outcomes requests.
func (h *OutcomesHandler) HandlePostOutcome(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_outcome"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req outcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	duplicate, err := h.deps.Submit(r.Context(), service.Submission{
		MatchupID: req.MatchupID,
		ItemA:     req.ItemA,
		ItemB:     req.ItemB,
		Outcome:   req.Outcome,
		Score:     req.Score,
	})
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
