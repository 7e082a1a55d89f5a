// internal/common/validation/schema.go
// Package validation checks inbound request payloads against JSON schemas
// before they reach the engine.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const submissionSchema = `{
	"type": "object",
	"required": ["applicantId", "postingId"],
	"properties": {
		"applicantId": {"type": "string", "minLength": 1},
		"postingId":   {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`

const decisionSchema = `{
	"type": "object",
	"required": ["state"],
	"properties": {
		"state": {"type": "string", "enum": ["approved", "rejected", "waitlisted", "accepted"]}
	},
	"additionalProperties": false
}`

const postingSchema = `{
	"type": "object",
	"required": ["organizationId", "organizationName", "title", "kind", "deadline"],
	"properties": {
		"organizationId":   {"type": "string", "minLength": 1},
		"organizationName": {"type": "string", "minLength": 1},
		"title":            {"type": "string", "minLength": 1},
		"kind":             {"type": "string", "enum": ["course", "job"]},
		"minGpa":           {"type": "number", "minimum": 0, "maximum": 4},
		"minExperience":    {"type": "integer", "minimum": 0},
		"certificates":     {"type": "array", "items": {"type": "string"}},
		"requirements":     {"type": "array", "items": {"type": "string"}},
		"seats":            {"type": "integer", "minimum": 0},
		"deadline":         {"type": "string", "format": "date-time"}
	},
	"additionalProperties": false
}`

var (
	submissionLoader = gojsonschema.NewStringLoader(submissionSchema)
	decisionLoader   = gojsonschema.NewStringLoader(decisionSchema)
	postingLoader    = gojsonschema.NewStringLoader(postingSchema)
)

// Error carries the per-field schema violations of one payload.
type Error struct {
	Fields []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("payload validation failed: %s", strings.Join(e.Fields, "; "))
}

func validate(schema gojsonschema.JSONLoader, raw []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &Error{Fields: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}
	fields := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		fields = append(fields, desc.String())
	}
	return &Error{Fields: fields}
}

// ValidateSubmission checks an application-submission payload.
func ValidateSubmission(raw []byte) error {
	return validate(submissionLoader, raw)
}

// ValidateDecision checks a status-transition payload.
func ValidateDecision(raw []byte) error {
	return validate(decisionLoader, raw)
}

// ValidatePosting checks a posting-creation payload.
func ValidatePosting(raw []byte) error {
	return validate(postingLoader, raw)
}
