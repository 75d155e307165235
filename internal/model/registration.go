package model

import (
	"time"

	"github.com/sells-group/tkd-registrar/internal/division"
)

// RegistrationStatus is the review state of a registration.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationApproved, RegistrationRejected:
		return true
	}
	return false
}

// CanTransition reports whether a registration in s may move to next.
// Only pending registrations are reviewed, and review is final.
func (s RegistrationStatus) CanTransition(next RegistrationStatus) bool {
	return s == RegistrationPending && (next == RegistrationApproved || next == RegistrationRejected)
}

// Registration enrolls one player in one category of a competition.
// Group holds the division label computed at registration time.
type Registration struct {
	ID            string             `json:"id"`
	CompetitionID string             `json:"competition_id"`
	PlayerID      string             `json:"player_id"`
	TeamID        string             `json:"team_id"`
	Category      division.Category  `json:"category"`
	Group         string             `json:"group"`
	Level         division.Level     `json:"level,omitempty"`
	Status        RegistrationStatus `json:"status"`
	ReviewNote    string             `json:"review_note,omitempty"`
	ReviewedBy    string             `json:"reviewed_by,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}
