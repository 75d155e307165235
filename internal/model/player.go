package model

import (
	"time"

	"github.com/sells-group/tkd-registrar/internal/division"
)

// DateLayout is the wire and storage format for birth and event dates.
const DateLayout = "2006-01-02"

// Player is a competitor belonging to a team.
type Player struct {
	ID        string        `json:"id"`
	TeamID    string        `json:"team_id"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Sex       division.Sex  `json:"sex"`
	BirthDate time.Time     `json:"birth_date"`
	Belt      division.Belt `json:"belt"`
	Height    *float64      `json:"height,omitempty"` // cm
	Weight    *float64      `json:"weight,omitempty"` // kg
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// FullName returns "First Last".
func (p Player) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// AgeOn returns the player's completed years on date.
func (p Player) AgeOn(date time.Time) int {
	if p.BirthDate.IsZero() {
		return 0
	}
	by, bm, bd := p.BirthDate.Date()
	y, m, d := date.Date()
	age := y - by
	if m < bm || (m == bm && d < bd) {
		age--
	}
	return age
}

// DivisionInput builds the classification input for one category, with
// age taken on the given date.
func (p Player) DivisionInput(category division.Category, on time.Time) division.Input {
	return division.Input{
		Age:      p.AgeOn(on),
		Sex:      p.Sex,
		Category: category,
		Height:   p.Height,
		Weight:   p.Weight,
	}
}
