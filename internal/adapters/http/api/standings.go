package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/tally/internal/adapters/export"
	"github.com/okian/tally/internal/domain/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StandingsDependencies defines the interface for standings operations.
type StandingsDependencies interface {
	ComputeStandings(ctx context.Context) types.Standings
	Rankings(ctx context.Context) []types.EventRanking
}

// StandingsHandler handles standings requests.
type StandingsHandler struct {
	deps StandingsDependencies
	now  func() time.Time
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps StandingsDependencies) *StandingsHandler {
	return &StandingsHandler{deps: deps, now: time.Now}
}

// HandleGetStandings handles GET /standings requests.
func (h *StandingsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	st := h.deps.ComputeStandings(r.Context())
	if st.Rows == nil {
		st.Rows = []types.DistrictStanding{}
	}
	if st.Events == nil {
		st.Events = []types.EventRef{}
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleExport handles GET /standings/export.xlsx requests.
func (h *StandingsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.Write(&buf, h.deps.ComputeStandings(r.Context()), h.deps.Rankings(r.Context())); err != nil {
		writeDomainError(w, err)
		return
	}
	name := "standings-" + h.now().UTC().Format("20060102-150405") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
