package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-console/internal/shared"
)

// ProblemDetail represents RFC7807 problem details.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Code   string `json:"code,omitempty"`
	Field  string `json:"field,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// DecodeJSON decodes JSON request body into the target struct. Malformed bodies surface as
// validation failures.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return shared.Invalid(shared.ErrInvalidInput, "body", err.Error())
	}
	return nil
}

// Data wraps a payload in the same envelope the business API uses.
func Data(w http.ResponseWriter, status int, data any) {
	JSON(w, status, map[string]any{"statusCode": status, "data": data})
}

// IDParam parses a positive integer URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Invalid(shared.ErrInvalidInput, name, "must be a positive integer")
	}
	return id, nil
}

// IntQuery reads an integer query parameter, falling back to def.
func IntQuery(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return def
	}
	return v
}

// ListFilter reads page, limit, status and search from the query string.
func ListFilter(r *http.Request) shared.ListFilter {
	q := r.URL.Query()
	return shared.ListFilter{
		Page:   IntQuery(r, "page", 1),
		Limit:  IntQuery(r, "limit", shared.DefaultPageSize),
		Status: q.Get("status"),
		Search: q.Get("search"),
	}
}
