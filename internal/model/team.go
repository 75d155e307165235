package model

import "time"

// Team is a club or school that registers players.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Coach     string    `json:"coach,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Competition is a single event players register into.
type Competition struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Location         string    `json:"location,omitempty"`
	EventDate        time.Time `json:"event_date"`
	RegistrationOpen bool      `json:"registration_open"`
	CreatedAt        time.Time `json:"created_at"`
}
