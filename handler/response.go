package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
)

type emptyResponse struct {
	status int
}

func (e emptyResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.WriteHeader(e.status)
	return nil
}

// Empty answers 204 No Content.
func Empty() Response {
	return emptyResponse{status: http.StatusNoContent}
}

// EmptyWithStatus answers status with no body.
func EmptyWithStatus(status int) Response {
	return emptyResponse{status: status}
}

type redirectResponse struct {
	url  string
	code int
}

func (r redirectResponse) Render(w http.ResponseWriter, req *http.Request) error {
	http.Redirect(w, req, r.url, r.code)
	return nil
}

// Redirect answers 303 See Other.
func Redirect(url string) Response {
	return redirectResponse{url: url, code: http.StatusSeeOther}
}

// RedirectWithCode answers with a specific 3xx code.
func RedirectWithCode(url string, code int) Response {
	return redirectResponse{url: url, code: code}
}

type downloadResponse struct {
	filename    string
	contentType string
	write       func(w io.Writer) error
}

func (d downloadResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", d.contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.filename}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := d.write(w); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStreamInterrupted, d.filename, err)
	}
	return nil
}

// Download streams an attachment produced by write.
func Download(filename, contentType string, write func(w io.Writer) error) Response {
	return downloadResponse{filename: filename, contentType: contentType, write: write}
}
