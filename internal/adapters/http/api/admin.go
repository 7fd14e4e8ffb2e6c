package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/identity"
	"github.com/okian/tally/internal/domain/model"
)

// AdminDependencies defines the interface for administrative operations.
type AdminDependencies interface {
	SetEventLocked(ctx context.Context, eventID string, locked bool) (model.Event, error)
	Refresh(ctx context.Context) (service.LoadReport, error)
}

// AdminHandler handles event locking and manual refresh.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// HandleLock handles POST /events/{eventID}/lock requests.
func (h *AdminHandler) HandleLock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, true)
}

// HandleUnlock handles POST /events/{eventID}/unlock requests.
func (h *AdminHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, false)
}

func (h *AdminHandler) setLocked(w http.ResponseWriter, r *http.Request, locked bool) {
	eventID := chi.URLParam(r, "eventID")
	if err := authorizeAdmin(r, eventID); err != nil {
		writeDomainError(w, err)
		return
	}
	e, err := h.deps.SetEventLocked(r.Context(), eventID, locked)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleRefresh handles POST /refresh requests. A partial load is reported
// with 200 and the failed collections in the body.
func (h *AdminHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := authorizeAdmin(r, ""); err != nil {
		writeDomainError(w, err)
		return
	}
	report, err := h.deps.Refresh(r.Context())
	if err != nil && !errors.Is(err, service.ErrPartialLoad) {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func authorizeAdmin(r *http.Request, eventID string) error {
	id, ok := identityFrom(r.Context())
	if !ok {
		return identity.ErrUnauthenticated
	}
	return identity.AuthorizeAdmin(id, eventID)
}
