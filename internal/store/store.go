// Package store persists teams, players, competitions and registrations.
package store

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tkd-registrar/internal/division"
	"github.com/sells-group/tkd-registrar/internal/model"
)

var (
	// ErrNotFound is returned when a lookup or update matches no row.
	ErrNotFound = eris.New("not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = eris.New("duplicate")
	// ErrConflict is returned when a registration is no longer pending.
	ErrConflict = eris.New("registration already reviewed")
)

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// PlayerFilter specifies criteria for listing players.
type PlayerFilter struct {
	TeamID string `json:"team_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// RegistrationFilter specifies criteria for listing registrations.
type RegistrationFilter struct {
	CompetitionID string                   `json:"competition_id,omitempty"`
	TeamID        string                   `json:"team_id,omitempty"`
	PlayerID      string                   `json:"player_id,omitempty"`
	Status        model.RegistrationStatus `json:"status,omitempty"`
	Category      division.Category        `json:"category,omitempty"`
	Limit         int                      `json:"limit,omitempty"`
	Offset        int                      `json:"offset,omitempty"`
}

// Review is the admin decision applied to a pending registration.
type Review struct {
	Status     model.RegistrationStatus
	ReviewedBy string
	Note       string
}

// Store defines the persistence interface for the registration system.
type Store interface {
	// Teams
	CreateTeam(ctx context.Context, team model.Team) (*model.Team, error)
	GetTeam(ctx context.Context, id string) (*model.Team, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	DeleteTeam(ctx context.Context, id string) error

	// Players
	CreatePlayer(ctx context.Context, p model.Player) (*model.Player, error)
	UpsertPlayers(ctx context.Context, players []model.Player) (int, error)
	GetPlayer(ctx context.Context, id string) (*model.Player, error)
	UpdatePlayer(ctx context.Context, p model.Player) (*model.Player, error)
	ListPlayers(ctx context.Context, filter PlayerFilter) ([]model.Player, error)
	DeletePlayer(ctx context.Context, id string) error

	// Competitions
	CreateCompetition(ctx context.Context, c model.Competition) (*model.Competition, error)
	GetCompetition(ctx context.Context, id string) (*model.Competition, error)
	ListCompetitions(ctx context.Context) ([]model.Competition, error)
	SetCompetitionOpen(ctx context.Context, id string, open bool) error

	// Registrations
	CreateRegistration(ctx context.Context, r model.Registration) (*model.Registration, error)
	GetRegistration(ctx context.Context, id string) (*model.Registration, error)
	ListRegistrations(ctx context.Context, filter RegistrationFilter) ([]model.Registration, error)
	ReviewRegistration(ctx context.Context, id string, review Review) error
	UpdateRegistrationGroup(ctx context.Context, id, group string, level division.Level) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
