package binder

import "net/http"

// Query binds URL query parameters using `query` tags. Comma separated
// values fill slices.
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		q := r.URL.Query()
		return bindValues(v, "query", func(name string) []string {
			return q[name]
		}, ErrFailedToParseQuery)
	}
}
