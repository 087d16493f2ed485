package binder

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Path binds chi URL parameters using `path` tags.
func Path() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindValues(v, "path", func(name string) []string {
			if value := chi.URLParam(r, name); value != "" {
				return []string{value}
			}
			return nil
		}, ErrFailedToParsePath)
	}
}
