package registration

import (
	"context"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/model"
	"github.com/sells-group/tkd-registrar/internal/store"
)

// DivisionCount tallies the registrations of one division by status.
type DivisionCount struct {
	Category division.Category `json:"category"`
	Group    string            `json:"group"`
	Pending  int               `json:"pending"`
	Approved int               `json:"approved"`
	Rejected int               `json:"rejected"`
}

// Total returns the number of registrations in the division.
func (d DivisionCount) Total() int { return d.Pending + d.Approved + d.Rejected }

// Summary is a per-division view of a competition's registrations.
type Summary struct {
	CompetitionID string          `json:"competition_id"`
	Total         int             `json:"total"`
	Divisions     []DivisionCount `json:"divisions"`
}

// Summarize groups a competition's registrations by category and division.
// Divisions are ordered by category, then label.
func (s *Service) Summarize(ctx context.Context, competitionID string) (*Summary, error) {
	if _, err := s.store.GetCompetition(ctx, competitionID); err != nil {
		return nil, eris.Wrap(err, "registration: load competition")
	}
	regs, err := s.listAll(ctx, store.RegistrationFilter{CompetitionID: competitionID})
	if err != nil {
		return nil, err
	}

	type key struct {
		cat   division.Category
		group string
	}
	counts := make(map[key]*DivisionCount)
	for _, r := range regs {
		k := key{r.Category, r.Group}
		dc, ok := counts[k]
		if !ok {
			dc = &DivisionCount{Category: r.Category, Group: r.Group}
			counts[k] = dc
		}
		switch r.Status {
		case model.RegistrationApproved:
			dc.Approved++
		case model.RegistrationRejected:
			dc.Rejected++
		default:
			dc.Pending++
		}
	}

	sum := &Summary{CompetitionID: competitionID, Total: len(regs)}
	for _, dc := range counts {
		sum.Divisions = append(sum.Divisions, *dc)
	}
	slices.SortFunc(sum.Divisions, func(a, b DivisionCount) int {
		if c := categoryRank(a.Category) - categoryRank(b.Category); c != 0 {
			return c
		}
		return strings.Compare(a.Group, b.Group)
	})
	return sum, nil
}

func categoryRank(c division.Category) int {
	if i := slices.Index(division.Categories, c); i >= 0 {
		return i
	}
	return len(division.Categories)
}
