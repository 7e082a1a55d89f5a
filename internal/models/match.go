// internal/models/match.go
package models

// MatchScore is the result of scoring a candidate against a posting.
// It is ephemeral: it lives only as long as the notification it produces.
type MatchScore struct {
	Score   int          `json:"score"`
	Factors MatchFactors `json:"factors"`
}

// MatchFactors is the per-criterion breakdown, each already weighted and
// expressed on the 0-100 scale.
type MatchFactors struct {
	Academic     float64 `json:"academic"`
	Experience   float64 `json:"experience"`
	Certificates float64 `json:"certificates"`
	Skills       float64 `json:"skills"`
}
