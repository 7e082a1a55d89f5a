// internal/models/posting.go
package models

import "time"

type PostingKind string

const (
	PostingKindCourse PostingKind = "course"
	PostingKindJob    PostingKind = "job"
)

type PostingState string

const (
	PostingOpen   PostingState = "open"
	PostingClosed PostingState = "closed"
)

// DefaultMinGPA is applied when a posting omits its GPA requirement. A zero
// minimum is disallowed so the academic ratio sub-score never divides by zero.
const DefaultMinGPA = 2.5

// Posting is a course or job opening with eligibility criteria.
type Posting struct {
	ID               string       `json:"id"`
	OrganizationID   string       `json:"organizationId"`
	OrganizationName string       `json:"organizationName"`
	Title            string       `json:"title"`
	Kind             PostingKind  `json:"kind"`
	MinGPA           float64      `json:"minGpa"`
	MinExperience    int          `json:"minExperience"`
	Certificates     []string     `json:"certificates"`
	Requirements     []string     `json:"requirements"`
	Seats            int          `json:"seats"`
	Deadline         time.Time    `json:"deadline"`
	State            PostingState `json:"state"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// ApplyDefaults fills policy defaults for absent criteria.
func (p *Posting) ApplyDefaults() {
	if p.MinGPA <= 0 {
		p.MinGPA = DefaultMinGPA
	}
	if p.MinExperience < 0 {
		p.MinExperience = 0
	}
	if p.State == "" {
		p.State = PostingOpen
	}
}

func (p *Posting) IsCourse() bool {
	return p.Kind == PostingKindCourse
}
