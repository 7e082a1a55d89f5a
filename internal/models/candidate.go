// internal/models/candidate.go
package models

// CandidateProfile is an immutable snapshot of a candidate at evaluation
// time. It is owned by the profile store and read-only to the engine.
type CandidateProfile struct {
	ID           string   `json:"id"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	GPA          float64  `json:"gpa"`
	Experience   int      `json:"experience"`
	Certificates []string `json:"certificates"`
	Skills       []string `json:"skills"`
}
