package binder

import (
	"fmt"
	"net/http"
)

// MaxFormMemory bounds multipart parsing.
const MaxFormMemory = 1 << 20

// Form binds urlencoded or multipart form fields using `form` tags.
func Form() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		switch mediaType(r) {
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return fmt.Errorf("%w: %v", ErrFailedToParseForm, err)
			}
		case "multipart/form-data":
			if err := r.ParseMultipartForm(MaxFormMemory); err != nil {
				return fmt.Errorf("%w: %v", ErrFailedToParseForm, err)
			}
		default:
			return ErrBinderNotApplicable
		}

		return bindValues(v, "form", func(name string) []string {
			return r.PostForm[name]
		}, ErrFailedToParseForm)
	}
}
