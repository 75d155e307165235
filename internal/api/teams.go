package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/model"
	"github.com/sells-group/tkd-registrar/internal/roster"
	"github.com/sells-group/tkd-registrar/internal/store"
)

type teamRequest struct {
	Name  string `json:"name"`
	Coach string `json:"coach"`
	Email string `json:"email"`
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, r, badRequest("name is required"))
		return
	}
	team, err := s.store.CreateTeam(r.Context(), model.Team{Name: name, Coach: req.Coach, Email: req.Email})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.store.ListTeams(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(teams))
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := s.store.GetTeam(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTeam(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTeamPlayers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetTeam(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	limit, offset, err := paging(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	players, err := s.store.ListPlayers(r.Context(), store.PlayerFilter{TeamID: id, Limit: limit, Offset: offset})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(players))
}

// handleImportRoster accepts a CSV roster body. Query parameters:
// dry_run=true validates without writing; as_of=YYYY-MM-DD sets the date
// ages are computed on (default today).
func (s *Server) handleImportRoster(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "roster import disabled"})
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetTeam(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		d, err := time.Parse(model.DateLayout, raw)
		if err != nil {
			writeError(w, r, badRequest("invalid as_of %q", raw))
			return
		}
		asOf = d
	}

	rows, err := roster.ReadCSV(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, badRequest("%v", err))
		return
	}

	im := s.importer
	if dry, _ := strconv.ParseBool(r.URL.Query().Get("dry_run")); dry {
		im = im.DryRun()
	}
	report, err := im.Import(r.Context(), id, rows, asOf)
	if err != nil {
		if report == nil {
			writeError(w, r, badRequest("%v", err))
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type playerRequest struct {
	TeamID    string   `json:"team_id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Sex       string   `json:"sex"`
	BirthDate string   `json:"birth_date"`
	Belt      string   `json:"belt"`
	Height    *float64 `json:"height"`
	Weight    *float64 `json:"weight"`
}

func (req playerRequest) toPlayer() (model.Player, error) {
	p := model.Player{
		TeamID:    req.TeamID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Height:    req.Height,
		Weight:    req.Weight,
	}
	if p.FirstName == "" {
		return p, badRequest("first_name is required")
	}
	sex, ok := division.ParseSex(req.Sex)
	if !ok {
		return p, badRequest("unknown sex %q", req.Sex)
	}
	p.Sex = sex
	bd, err := time.Parse(model.DateLayout, req.BirthDate)
	if err != nil {
		return p, badRequest("birth_date must be YYYY-MM-DD")
	}
	p.BirthDate = bd
	if req.Belt != "" {
		belt, ok := division.ParseBelt(req.Belt)
		if !ok {
			return p, badRequest("unknown belt %q", req.Belt)
		}
		p.Belt = belt
	}
	for name, v := range map[string]*float64{"height": p.Height, "weight": p.Weight} {
		if v != nil && *v <= 0 {
			return p, badRequest("%s must be positive", name)
		}
	}
	return p, nil
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.toPlayer()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p.TeamID == "" {
		writeError(w, r, badRequest("team_id is required"))
		return
	}
	if _, err := s.store.GetTeam(r.Context(), p.TeamID); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.store.CreatePlayer(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPlayer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleUpdatePlayer replaces a player's details. Pending registrations are
// not reclassified here; use the competition reclassify route.
func (s *Server) handleUpdatePlayer(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := req.toPlayer()
	if err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = chi.URLParam(r, "id")
	updated, err := s.store.UpdatePlayer(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeletePlayer(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePreview classifies a player. Query parameters: competition_id and
// categories (comma separated; default all).
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	cats, err := parseCategories(r.URL.Query().Get("categories"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Preview(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("competition_id"), cats)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func parseCategories(raw string) ([]division.Category, error) {
	if raw == "" {
		return nil, nil
	}
	var cats []division.Category
	for _, part := range strings.Split(raw, ",") {
		cat, ok := division.ParseCategory(part)
		if !ok {
			return nil, badRequest("unknown category %q", part)
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

func paging(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return 0, 0, badRequest("invalid limit %q", raw)
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return 0, 0, badRequest("invalid offset %q", raw)
		}
	}
	return limit, offset, nil
}

// nonNil keeps empty lists rendering as [] instead of null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
