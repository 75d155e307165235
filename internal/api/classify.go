package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/tkd-registrar/internal/division"
)

type classifyRequest struct {
	Age        int      `json:"age"`
	Sex        string   `json:"sex"`
	Category   string   `json:"category,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Height     *float64 `json:"height,omitempty"`
	Weight     *float64 `json:"weight,omitempty"`
}

type classifyResponse struct {
	Outcome  string `json:"outcome,omitempty"`
	Division string `json:"division,omitempty"`
	Label    string `json:"label"`
}

// handleClassify runs the engine without touching the store. With
// "categories" it returns the combined label; with "category" it returns
// the tagged result.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sex, ok := division.ParseSex(req.Sex)
	if !ok {
		writeError(w, r, badRequest("unknown sex %q", req.Sex))
		return
	}
	in := division.Input{Age: req.Age, Sex: sex, Height: req.Height, Weight: req.Weight}

	if len(req.Categories) > 0 {
		cats := make([]division.Category, 0, len(req.Categories))
		for _, c := range req.Categories {
			cat, ok := division.ParseCategory(c)
			if !ok {
				writeError(w, r, badRequest("unknown category %q", c))
				return
			}
			cats = append(cats, cat)
		}
		writeJSON(w, http.StatusOK, classifyResponse{Label: s.classifier.ClassifyAll(in, cats)})
		return
	}

	cat, ok := division.ParseCategory(req.Category)
	if !ok {
		writeError(w, r, badRequest("unknown category %q", req.Category))
		return
	}
	in.Category = cat
	res := s.classifier.Classify(in)
	writeJSON(w, http.StatusOK, classifyResponse{Outcome: res.Outcome.String(), Division: res.Division, Label: res.Label()})
}

type divisionsResponse struct {
	Kyorugi []division.Table   `json:"kyorugi"`
	Poomsae []division.AgeBand `json:"poomsae"`
}

func (s *Server) handleDivisions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, divisionsResponse{Kyorugi: division.Tables(), Poomsae: division.PoomsaeBands()})
}

func (s *Server) handleBeltLevel(w http.ResponseWriter, r *http.Request) {
	raw, err := url.PathUnescape(chi.URLParam(r, "belt"))
	if err != nil {
		writeError(w, r, badRequest("invalid belt"))
		return
	}
	belt, ok := division.ParseBelt(raw)
	if !ok {
		writeError(w, r, badRequest("unknown belt %q", raw))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"belt":  string(belt),
		"level": string(division.BeltLevel(belt)),
	})
}
