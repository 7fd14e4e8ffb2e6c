package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/tally/internal/domain/identity"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/scoring"
	"github.com/okian/tally/internal/domain/submission"
)

// EventsDependencies defines the interface for event and score operations.
type EventsDependencies interface {
	Events() []model.Event
	SubmitScore(ctx context.Context, req submission.Request) (submission.Result, error)
}

// EventsHandler handles event listing and score submission.
type EventsHandler struct {
	deps EventsDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventsDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// scoreRequest mirrors the OpenAPI schema for POST /events/{eventID}/scores.
// Entry values may be numbers or numeric strings.
type scoreRequest struct {
	ParticipantID string         `json:"participantId"`
	Entries       map[string]any `json:"criteriaScores"`
	Deduction     float64        `json:"deductions"`
	Critique      string         `json:"critique"`
}

// HandleListEvents handles GET /events requests.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, _ *http.Request) {
	events := h.deps.Events()
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleSubmitScore handles POST /events/{eventID}/scores requests. The
// judge is the authenticated identity.
func (h *EventsHandler) HandleSubmitScore(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	id, ok := identityFrom(r.Context())
	if !ok {
		writeDomainError(w, identity.ErrUnauthenticated)
		return
	}
	if err := identity.AuthorizeSubmission(id, eventID); err != nil {
		writeDomainError(w, err)
		return
	}

	var body scoreRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeDomainError(w, fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if body.ParticipantID == "" {
		writeDomainError(w, fmt.Errorf("%w: missing participantId", ErrBadRequest))
		return
	}

	res, err := h.deps.SubmitScore(r.Context(), submission.Request{
		JudgeID:       id.UserID,
		ParticipantID: body.ParticipantID,
		EventID:       eventID,
		Entries:       scoring.ParseEntries(body.Entries),
		Deduction:     body.Deduction,
		Critique:      body.Critique,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
