package model

import "time"

// Application is a candidacy submission. Documents mirrors the authoritative
// application document records for cheap reads.
type Application struct {
	ID              string            `json:"id"`
	FirstName       string            `json:"first_name"`
	LastName        string            `json:"last_name"`
	Email           string            `json:"email"`
	Phone           string            `json:"phone"`
	City            string            `json:"city"`
	Address         string            `json:"address"`
	Category        string            `json:"category"`
	YearsExperience *int              `json:"years_experience"`
	Municipality    string            `json:"municipality"`
	AcceptedTerms   bool              `json:"accepted_terms"`
	Documents       []DocumentSummary `json:"documents"`
	CreatedAt       time.Time         `json:"created_at"`
}

// DocumentSummary is the denormalized entry kept on the application record.
type DocumentSummary struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	CandidateName string `json:"candidate_name"`
	ContentType   string `json:"content_type"`
	Size          int64  `json:"size"`
	DownloadURL   string `json:"download_url"`
}

// CandidateName is the display name stored on application documents.
func (a *Application) CandidateName() string {
	return a.FirstName + " " + a.LastName
}
