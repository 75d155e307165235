// Package registration enrolls players into competitions and manages the
// admin review of their registrations.
package registration

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/model"
	"github.com/sells-group/tkd-registrar/internal/resilience"
	"github.com/sells-group/tkd-registrar/internal/store"
)

var (
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = eris.New("registration: invalid input")
	// ErrClosed is returned when the competition does not accept registrations.
	ErrClosed = eris.New("registration: competition is closed")
	// ErrIncompleteData is returned when Kyorugi lacks height or weight.
	ErrIncompleteData = eris.New("registration: kyorugi requires height and weight")
	// ErrUnclassified is returned when no division matches the player.
	ErrUnclassified = eris.New("registration: no division matches player")
	// ErrInvalidTransition is returned when a review targets a registration
	// that is no longer pending.
	ErrInvalidTransition = eris.New("registration: invalid status transition")
)

// Option configures a Service.
type Option func(*Service)

// WithClassifierOptions sets the classification options used for every
// registration.
func WithClassifierOptions(opts division.Options) Option {
	return func(s *Service) {
		s.classifier = division.NewClassifier(opts)
	}
}

// WithRetry sets the retry policy for store writes.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Service) {
		s.retry = cfg
	}
}

// WithClock overrides the time source used when no competition date applies.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service implements the registration flow on top of a Store.
type Service struct {
	store      store.Store
	classifier division.Classifier
	retry      resilience.RetryConfig
	now        func() time.Time
}

// NewService creates a registration service.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		retry: resilience.DefaultRetryConfig(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) retryCfg(operation string) resilience.RetryConfig {
	cfg := s.retry
	cfg.OnRetry = resilience.RetryLogger(operation)
	return cfg
}

// RegisterRequest enrolls one player in one or more categories.
type RegisterRequest struct {
	CompetitionID string              `json:"competition_id"`
	PlayerID      string              `json:"player_id"`
	Categories    []division.Category `json:"categories"`
}

func (r RegisterRequest) validate() ([]division.Category, error) {
	if r.CompetitionID == "" || r.PlayerID == "" {
		return nil, eris.Wrap(ErrInvalidInput, "competition_id and player_id are required")
	}
	if len(r.Categories) == 0 {
		return nil, eris.Wrap(ErrInvalidInput, "at least one category is required")
	}
	seen := make(map[division.Category]bool, len(r.Categories))
	cats := make([]division.Category, 0, len(r.Categories))
	for _, c := range r.Categories {
		cat, ok := division.ParseCategory(string(c))
		if !ok {
			return nil, eris.Wrapf(ErrInvalidInput, "unknown category %q", c)
		}
		if seen[cat] {
			continue
		}
		seen[cat] = true
		cats = append(cats, cat)
	}
	return cats, nil
}

// Register creates one pending registration per category. Every category is
// classified and checked against existing registrations before anything is
// written, so a request that fails on one category writes no records at all. Each record holds exactly one
// division label.
func (s *Service) Register(ctx context.Context, req RegisterRequest) ([]model.Registration, error) {
	cats, err := req.validate()
	if err != nil {
		return nil, err
	}

	comp, err := s.store.GetCompetition(ctx, req.CompetitionID)
	if err != nil {
		return nil, eris.Wrap(err, "registration: load competition")
	}
	if !comp.RegistrationOpen {
		return nil, eris.Wrapf(ErrClosed, "competition %s", comp.Name)
	}

	player, err := s.store.GetPlayer(ctx, req.PlayerID)
	if err != nil {
		return nil, eris.Wrap(err, "registration: load player")
	}

	level := division.BeltLevel(player.Belt)
	pending := make([]model.Registration, 0, len(cats))
	for _, cat := range cats {
		res := s.classifier.Classify(player.DivisionInput(cat, comp.EventDate))
		if err := resultErr(res, player, cat); err != nil {
			return nil, err
		}
		pending = append(pending, model.Registration{
			CompetitionID: comp.ID,
			PlayerID:      player.ID,
			TeamID:        player.TeamID,
			Category:      cat,
			Group:         res.Division,
			Level:         level,
		})
	}

	if err := s.checkNotRegistered(ctx, player, comp.ID, cats); err != nil {
		return nil, err
	}

	created := make([]model.Registration, 0, len(pending))
	for _, r := range pending {
		reg, err := resilience.DoVal(ctx, s.retryCfg("create_registration"), func(ctx context.Context) (*model.Registration, error) {
			return s.store.CreateRegistration(ctx, r)
		})
		if err != nil {
			return created, eris.Wrapf(err, "registration: create %s for %s", r.Category, player.FullName())
		}
		zap.L().Info("registration created",
			zap.String("registration_id", reg.ID),
			zap.String("player_id", reg.PlayerID),
			zap.String("competition_id", reg.CompetitionID),
			zap.String("category", string(reg.Category)),
			zap.String("group", reg.Group),
		)
		created = append(created, *reg)
	}
	return created, nil
}

// checkNotRegistered fails with store.ErrDuplicate when the player already
// holds a registration in any of cats for the competition.
func (s *Service) checkNotRegistered(ctx context.Context, p *model.Player, competitionID string, cats []division.Category) error {
	existing, err := s.listAll(ctx, store.RegistrationFilter{CompetitionID: competitionID, PlayerID: p.ID})
	if err != nil {
		return err
	}
	for _, r := range existing {
		if slices.Contains(cats, r.Category) {
			return eris.Wrapf(store.ErrDuplicate, "registration: %s already registered in %s", p.FullName(), r.Category)
		}
	}
	return nil
}

func resultErr(res division.Result, p *model.Player, cat division.Category) error {
	switch res.Outcome {
	case division.Classified:
		return nil
	case division.Incomplete:
		return eris.Wrapf(ErrIncompleteData, "player %s", p.FullName())
	default:
		return eris.Wrapf(ErrUnclassified, "player %s in %s", p.FullName(), cat)
	}
}

// CategoryDivision is the classification of one category in a Preview.
type CategoryDivision struct {
	Category division.Category `json:"category"`
	Outcome  division.Outcome  `json:"outcome"`
	Division string            `json:"division,omitempty"`
}

// Preview is the classification of a player without persisting anything.
type Preview struct {
	PlayerID  string             `json:"player_id"`
	Age       int                `json:"age"`
	Level     division.Level     `json:"level,omitempty"`
	Label     string             `json:"label"`
	Divisions []CategoryDivision `json:"divisions"`
}

// Preview classifies a player for the given categories. Age is taken on the
// competition's event date, or today when competitionID is empty. Label is
// the combined multi-category label.
func (s *Service) Preview(ctx context.Context, playerID, competitionID string, categories []division.Category) (*Preview, error) {
	if len(categories) == 0 {
		categories = division.Categories
	}

	player, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, eris.Wrap(err, "registration: load player")
	}

	on := s.now()
	if competitionID != "" {
		comp, err := s.store.GetCompetition(ctx, competitionID)
		if err != nil {
			return nil, eris.Wrap(err, "registration: load competition")
		}
		on = comp.EventDate
	}

	in := player.DivisionInput("", on)
	p := &Preview{
		PlayerID: player.ID,
		Age:      in.Age,
		Level:    division.BeltLevel(player.Belt),
		Label:    s.classifier.ClassifyAll(in, categories),
	}
	for _, cat := range categories {
		in.Category = cat
		res := s.classifier.Classify(in)
		p.Divisions = append(p.Divisions, CategoryDivision{Category: cat, Outcome: res.Outcome, Division: res.Division})
	}
	return p, nil
}

// Approve marks a pending registration approved.
func (s *Service) Approve(ctx context.Context, id, reviewer, note string) (*model.Registration, error) {
	return s.review(ctx, id, store.Review{Status: model.RegistrationApproved, ReviewedBy: reviewer, Note: note})
}

// Reject marks a pending registration rejected.
func (s *Service) Reject(ctx context.Context, id, reviewer, note string) (*model.Registration, error) {
	return s.review(ctx, id, store.Review{Status: model.RegistrationRejected, ReviewedBy: reviewer, Note: note})
}

func (s *Service) review(ctx context.Context, id string, rv store.Review) (*model.Registration, error) {
	reg, err := s.store.GetRegistration(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "registration: load")
	}
	if !reg.Status.CanTransition(rv.Status) {
		return nil, eris.Wrapf(ErrInvalidTransition, "%s -> %s", reg.Status, rv.Status)
	}

	err = resilience.Do(ctx, s.retryCfg("review_registration"), func(ctx context.Context) error {
		return s.store.ReviewRegistration(ctx, id, rv)
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, eris.Wrapf(ErrInvalidTransition, "registration %s was reviewed concurrently", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "registration: review")
	}

	zap.L().Info("registration reviewed",
		zap.String("registration_id", id),
		zap.String("status", string(rv.Status)),
		zap.String("reviewed_by", rv.ReviewedBy),
	)
	return s.store.GetRegistration(ctx, id)
}

// ReclassifyIssue records a pending registration whose player no longer
// fits any division.
type ReclassifyIssue struct {
	RegistrationID string            `json:"registration_id"`
	PlayerID       string            `json:"player_id"`
	Category       division.Category `json:"category"`
	Outcome        division.Outcome  `json:"outcome"`
}

// ReclassifyReport summarizes a Reclassify run.
type ReclassifyReport struct {
	Checked    int               `json:"checked"`
	Updated    int               `json:"updated"`
	Unresolved []ReclassifyIssue `json:"unresolved,omitempty"`
}

// Reclassify recomputes group and level for every pending registration of a
// competition from the players' current data. Registrations that no longer
// classify keep their stored group and are listed in the report.
func (s *Service) Reclassify(ctx context.Context, competitionID string) (*ReclassifyReport, error) {
	comp, err := s.store.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, eris.Wrap(err, "registration: load competition")
	}

	regs, err := s.listAll(ctx, store.RegistrationFilter{CompetitionID: comp.ID, Status: model.RegistrationPending})
	if err != nil {
		return nil, err
	}

	report := &ReclassifyReport{}
	players := make(map[string]*model.Player)
	for _, reg := range regs {
		report.Checked++

		p, ok := players[reg.PlayerID]
		if !ok {
			p, err = s.store.GetPlayer(ctx, reg.PlayerID)
			if err != nil {
				return report, eris.Wrapf(err, "registration: load player %s", reg.PlayerID)
			}
			players[reg.PlayerID] = p
		}

		res := s.classifier.Classify(p.DivisionInput(reg.Category, comp.EventDate))
		if !res.OK() {
			report.Unresolved = append(report.Unresolved, ReclassifyIssue{
				RegistrationID: reg.ID,
				PlayerID:       reg.PlayerID,
				Category:       reg.Category,
				Outcome:        res.Outcome,
			})
			continue
		}

		level := division.BeltLevel(p.Belt)
		if res.Division == reg.Group && level == reg.Level {
			continue
		}
		err := resilience.Do(ctx, s.retryCfg("update_registration_group"), func(ctx context.Context) error {
			return s.store.UpdateRegistrationGroup(ctx, reg.ID, res.Division, level)
		})
		if err != nil {
			return report, eris.Wrapf(err, "registration: update %s", reg.ID)
		}
		zap.L().Debug("registration reclassified",
			zap.String("registration_id", reg.ID),
			zap.String("from", reg.Group),
			zap.String("to", res.Division),
		)
		report.Updated++
	}

	zap.L().Info("reclassify complete",
		zap.String("competition_id", comp.ID),
		zap.Int("checked", report.Checked),
		zap.Int("updated", report.Updated),
		zap.Int("unresolved", len(report.Unresolved)),
	)
	return report, nil
}

const pageSize = 500

// listAll pages through ListRegistrations until the filter is exhausted.
func (s *Service) listAll(ctx context.Context, filter store.RegistrationFilter) ([]model.Registration, error) {
	filter.Limit = pageSize
	var all []model.Registration
	for {
		page, err := s.store.ListRegistrations(ctx, filter)
		if err != nil {
			return nil, eris.Wrap(err, "registration: list")
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		filter.Offset += pageSize
	}
}
