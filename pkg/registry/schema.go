// pkg/registry/schema.go
package registry

// TemplateRegistry is the JSON file describing notification templates.
type TemplateRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Templates   []Template `json:"templates"`
}

// Template is one renderable notification. Subject and Body may contain
// {{placeholder}} tokens substituted at render time.
type Template struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Template ids used by the fanout.
const (
	TemplateJobMatch    = "job_match"
	TemplateCourseMatch = "course_match"
)
