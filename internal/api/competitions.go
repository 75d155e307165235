package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/tkd-registrar/internal/model"
)

type competitionRequest struct {
	Name             string `json:"name"`
	Location         string `json:"location"`
	EventDate        string `json:"event_date"`
	RegistrationOpen bool   `json:"registration_open"`
}

func (s *Server) handleCreateCompetition(w http.ResponseWriter, r *http.Request) {
	var req competitionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, r, badRequest("name is required"))
		return
	}
	date, err := time.Parse(model.DateLayout, req.EventDate)
	if err != nil {
		writeError(w, r, badRequest("event_date must be YYYY-MM-DD"))
		return
	}
	comp, err := s.store.CreateCompetition(r.Context(), model.Competition{
		Name:             name,
		Location:         req.Location,
		EventDate:        date,
		RegistrationOpen: req.RegistrationOpen,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comp)
}

func (s *Server) handleListCompetitions(w http.ResponseWriter, r *http.Request) {
	comps, err := s.store.ListCompetitions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(comps))
}

func (s *Server) handleGetCompetition(w http.ResponseWriter, r *http.Request) {
	comp, err := s.store.GetCompetition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comp)
}

func (s *Server) handleSetOpen(open bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.store.SetCompetitionOpen(r.Context(), id, open); err != nil {
			writeError(w, r, err)
			return
		}
		comp, err := s.store.GetCompetition(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, comp)
	}
}

func (s *Server) handleReclassify(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Reclassify(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Summarize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
