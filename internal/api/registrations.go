package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/model"
	"github.com/sells-group/tkd-registrar/internal/registration"
	"github.com/sells-group/tkd-registrar/internal/store"
)

type registerRequest struct {
	CompetitionID string   `json:"competition_id"`
	PlayerID      string   `json:"player_id"`
	Categories    []string `json:"categories"`
}

type partialRegisterBody struct {
	Error   string               `json:"error"`
	Created []model.Registration `json:"created"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	cats := make([]division.Category, len(req.Categories))
	for i, c := range req.Categories {
		cats[i] = division.Category(c)
	}
	regs, err := s.svc.Register(r.Context(), registration.RegisterRequest{
		CompetitionID: req.CompetitionID,
		PlayerID:      req.PlayerID,
		Categories:    cats,
	})
	if err != nil {
		if len(regs) > 0 {
			// Records written before the failure stay in the store.
			status, msg := errorResponse(r, err)
			writeJSON(w, status, partialRegisterBody{Error: msg, Created: regs})
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, regs)
}

func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := paging(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := store.RegistrationFilter{
		CompetitionID: q.Get("competition_id"),
		TeamID:        q.Get("team_id"),
		PlayerID:      q.Get("player_id"),
		Limit:         limit,
		Offset:        offset,
	}
	if raw := q.Get("status"); raw != "" {
		st := model.RegistrationStatus(strings.ToLower(raw))
		if !st.Valid() {
			writeError(w, r, badRequest("unknown status %q", raw))
			return
		}
		filter.Status = st
	}
	if raw := q.Get("category"); raw != "" {
		cat, ok := division.ParseCategory(raw)
		if !ok {
			writeError(w, r, badRequest("unknown category %q", raw))
			return
		}
		filter.Category = cat
	}

	regs, err := s.store.ListRegistrations(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(regs))
}

func (s *Server) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := s.store.GetRegistration(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

type reviewRequest struct {
	ReviewedBy string `json:"reviewed_by"`
	Note       string `json:"note"`
}

func (s *Server) handleReview(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reviewRequest
		if r.ContentLength != 0 {
			if err := decode(r, &req); err != nil {
				writeError(w, r, err)
				return
			}
		}
		id := chi.URLParam(r, "id")

		review := s.svc.Reject
		if approve {
			review = s.svc.Approve
		}
		reg, err := review(r.Context(), id, req.ReviewedBy, req.Note)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reg)
	}
}
