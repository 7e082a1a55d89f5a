// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadRegistry reads the template registry file. When the file is absent the
// built-in defaults are returned so a bare checkout still delivers readable
// notifications.
func LoadRegistry(path string) (*TemplateRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultRegistry(), nil
		}
		return nil, err
	}
	var reg TemplateRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Lookup returns the template with the given id.
func (r *TemplateRegistry) Lookup(id string) (Template, bool) {
	for _, t := range r.Templates {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// Render substitutes {{key}} placeholders and strips any that remain unbound.
func Render(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		switch tv := v.(type) {
		case string:
			value = tv
		case int:
			value = fmt.Sprintf("%d", tv)
		default:
			if v != nil {
				value = fmt.Sprintf("%v", v)
			}
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}

func defaultRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		Version: "builtin",
		Templates: []Template{
			{
				ID:      TemplateJobMatch,
				Subject: "A job opening matches your profile",
				Body:    "{{postingTitle}} at {{organizationName}} matches your profile with a score of {{score}}.",
			},
			{
				ID:      TemplateCourseMatch,
				Subject: "A course matches your profile",
				Body:    "{{postingTitle}} at {{organizationName}} matches your profile with a score of {{score}}.",
			},
		},
	}
}
