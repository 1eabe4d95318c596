package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/fundora/internal/adapters/http/auth"
	"github.com/okian/fundora/internal/domain/interaction"
	"github.com/okian/fundora/internal/domain/model"
)

// maxWindowMinutes is the widest comparison dedup window a caller may ask for.
const maxWindowMinutes = 7 * 24 * 60

type comparisonRequest struct {
	StartupIDs    []string `json:"startup_ids"`
	WindowMinutes int      `json:"window_minutes"`
}

func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_view"

	allowOwner := false
	if v := r.URL.Query().Get("allow_owner"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.fail(w, r, wrapKind(op, ErrBadRequest, err))
			return
		}
		allowOwner = b
	}

	out, err := s.deps.RecordView(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("id"), allowOwner)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeOutcome(w, r, out)
}

func (s *Server) handleRecordComparison(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_comparison"

	var req comparisonRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, wrapKind(op, ErrBadRequest, err))
		return
	}
	if req.WindowMinutes < 0 || req.WindowMinutes > maxWindowMinutes {
		s.fail(w, r, wrapKind(op, ErrBadRequest, fmt.Errorf("window_minutes must be between 0 and %d", maxWindowMinutes)))
		return
	}

	window := time.Duration(req.WindowMinutes) * time.Minute
	out, err := s.deps.RecordComparison(r.Context(), auth.ActorFrom(r.Context()), req.StartupIDs, window)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeOutcome(w, r, out)
}

// writeOutcome renders a recording outcome. Success-class statuses return
// the outcome itself, rejections use the error envelope.
func (s *Server) writeOutcome(w http.ResponseWriter, r *http.Request, out interaction.Outcome) { //nolint:gocritic // hugeParam: read-only
	switch out.Status {
	case model.StatusRecorded:
		writeJSON(w, http.StatusCreated, out)
	case model.StatusDuplicate, model.StatusOwnerSkipped:
		writeJSON(w, http.StatusOK, out)
	case model.StatusUnauthenticated:
		writeError(w, http.StatusUnauthorized, string(out.Status), out.Err)
	case model.StatusInsufficientSubjects:
		writeError(w, http.StatusBadRequest, string(out.Status), out.Err)
	default:
		err := out.Err
		if err == nil {
			err = errors.New("interaction failed")
		}
		s.fail(w, r, err)
	}
}
