package model

// Package model contains domain models shared across layers.
// Types here carry JSON tags for the HTTP contract and no persistence details.

import (
	"encoding/json"
	"time"
)

// Candidate is a contest participant.
type Candidate struct {
	Name               string    `json:"name" validate:"required"`
	Email              string    `json:"email" validate:"required,email"`
	Phone              string    `json:"phone" validate:"required"`
	IdentityDocument   string    `json:"identityDocument" validate:"required"`
	CategoryID         string    `json:"categoryId" validate:"required,uuid"`
	RegistrationStatus string    `json:"registrationStatus" validate:"required"`
	RegistrationDate   time.Time `json:"registrationDate"`
}

type Category struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	Prize       string `json:"prize" validate:"required"`
}

type Event struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description" validate:"required"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
	Location    string    `json:"location" validate:"required"`
}

type Juror struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Specialty string `json:"specialty" validate:"required"`
}

// Evaluation is a juror's score for a candidate.
type Evaluation struct {
	CandidateID string    `json:"candidateId" validate:"required,uuid"`
	JurorID     string    `json:"jurorId" validate:"required,uuid"`
	Score       float64   `json:"score" validate:"gte=0"`
	Comment     string    `json:"comment" validate:"required"`
	Date        time.Time `json:"date"`
}

// Result is a final placement of a candidate within a category.
type Result struct {
	CandidateID string `json:"candidateId" validate:"required,uuid"`
	CategoryID  string `json:"categoryId" validate:"required,uuid"`
	Position    int    `json:"position" validate:"required,gte=1"`
	Prize       string `json:"prize" validate:"required"`
}

// SetDefaults fills the registration date of a new candidate.
func (c *Candidate) SetDefaults(now time.Time) {
	if c.RegistrationDate.IsZero() {
		c.RegistrationDate = now
	}
}

// SetDefaults fills the evaluation date of a new evaluation.
func (e *Evaluation) SetDefaults(now time.Time) {
	if e.Date.IsZero() {
		e.Date = now
	}
}

// SupportMessage is a free-form message from the support form.
type SupportMessage map[string]any

// Record wraps a stored entity with its generated identity and timestamps.
// It marshals flat: the entity fields sit next to id, created_at and updated_at.
type Record[T any] struct {
	ID        string
	Data      T
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r Record[T]) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["id"] = r.ID
	fields["created_at"] = r.CreatedAt
	fields["updated_at"] = r.UpdatedAt
	return json.Marshal(fields)
}
