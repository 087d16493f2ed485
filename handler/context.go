package handler

import (
	"context"
	"net/http"
)

// Context is what handlers receive: the request's context.Context with the
// request and its writer attached.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
}

// NewContext binds w and r. Deadlines and values come from r.Context() as
// it was when the Context was created.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return requestContext{Context: r.Context(), w: w, r: r}
}

type requestContext struct {
	context.Context
	w http.ResponseWriter
	r *http.Request
}

func (c requestContext) Request() *http.Request { return c.r }

func (c requestContext) ResponseWriter() http.ResponseWriter { return c.w }
