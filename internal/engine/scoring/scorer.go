// internal/engine/scoring/scorer.go
// Package scoring computes the 0-100 compatibility score between a candidate
// and a posting. It is pure: no stores, no side effects, never an error.
package scoring

import (
	"math"
	"strings"

	"admission-engine/internal/models"
)

// Policy weights. They sum to 1.0 and are constants, not tunables.
const (
	weightAcademic     = 0.30
	weightExperience   = 0.30
	weightCertificates = 0.20
	weightSkills       = 0.20
)

// Score evaluates candidate against posting. Missing or malformed profile
// fields count as their zero values; a nil candidate scores as an empty one.
func Score(candidate *models.CandidateProfile, posting *models.Posting) models.MatchScore {
	if candidate == nil {
		candidate = &models.CandidateProfile{}
	}

	factors := models.MatchFactors{
		Academic:     academicScore(candidate.GPA, posting.MinGPA),
		Experience:   experienceScore(candidate.Experience, posting.MinExperience),
		Certificates: matchScore(candidate.Certificates, posting.Certificates, weightCertificates),
		Skills:       matchScore(candidate.Skills, posting.Requirements, weightSkills),
	}

	total := factors.Academic + factors.Experience + factors.Certificates + factors.Skills
	score := int(math.Round(total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return models.MatchScore{Score: score, Factors: factors}
}

func academicScore(gpa, minGPA float64) float64 {
	if minGPA <= 0 {
		// disallowed upstream, defended here so the ratio never divides by zero
		minGPA = models.DefaultMinGPA
	}
	full := weightAcademic * 100
	if gpa >= minGPA {
		return full
	}
	if gpa <= 0 {
		return 0
	}
	return clamp(full*(gpa/minGPA), 0, full)
}

func experienceScore(years, minYears int) float64 {
	full := weightExperience * 100
	if years >= minYears {
		return full
	}
	denom := minYears
	if denom < 1 {
		denom = 1
	}
	if years <= 0 {
		return 0
	}
	return clamp(full*(float64(years)/float64(denom)), 0, full)
}

// matchScore applies the lenient matching rule: a requirement is satisfied
// when it and a candidate entry contain each other case-insensitively in
// either direction ("Python" satisfies "Python3" and vice versa).
func matchScore(have, required []string, weight float64) float64 {
	full := weight * 100
	if len(required) == 0 {
		return full
	}

	matched := 0
	for _, req := range required {
		if anyLenientMatch(have, req) {
			matched++
		}
	}
	return full * (float64(matched) / float64(len(required)))
}

func anyLenientMatch(have []string, required string) bool {
	req := strings.ToLower(strings.TrimSpace(required))
	if req == "" {
		return true
	}
	for _, h := range have {
		entry := strings.ToLower(strings.TrimSpace(h))
		if entry == "" {
			continue
		}
		if strings.Contains(entry, req) || strings.Contains(req, entry) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
