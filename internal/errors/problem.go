package errors

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// ProblemDetails is an RFC 7807 problem. Extensions are written as
// top-level members next to the standard ones.
type ProblemDetails struct {
	Type       string
	Title      string
	Status     int
	Detail     string
	Instance   string
	Extensions map[string]interface{}
}

func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: map[string]interface{}{},
	}
}

// WithExtension sets an extension member and returns pd for chaining
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// Render sets the problem content type and status for render.Render
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/problem+json")
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON writes the standard members over any extension of the
// same name
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(pd.Extensions)+5)
	for k, v := range pd.Extensions {
		out[k] = v
	}
	out["type"], out["title"], out["status"] = pd.Type, pd.Title, pd.Status
	if pd.Detail != "" {
		out["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		out["instance"] = pd.Instance
	}
	return json.Marshal(out)
}
