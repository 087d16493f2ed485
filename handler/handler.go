package handler

import (
	"errors"
	"net/http"

	"github.com/natvps/panel/pkg/binder"
)

// HandlerFunc receives the request already bound into R and returns what
// to send back.
type HandlerFunc[C Context, R any] func(ctx C, req R) Response

// Response writes itself to the client.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind decodes part of r into v. See package binder.
type Bind func(r *http.Request, v any) error

// ErrorHandler turns a binding or rendering failure into a response.
type ErrorHandler[C Context] func(ctx C, err error)

// Decorator adds behavior around a HandlerFunc.
type Decorator[C Context, R any] func(HandlerFunc[C, R]) HandlerFunc[C, R]

// WrapOption tunes a single Wrap call.
type WrapOption[C Context, R any] func(*wrapper[C, R])

type wrapper[C Context, R any] struct {
	binders    []Bind
	onError    ErrorHandler[C]
	decorators []Decorator[C, R]
}

// WithBinders runs the binders in order. Binders that do not apply to the
// request return binder.ErrBinderNotApplicable and are skipped.
func WithBinders[C Context, R any](binders ...Bind) WrapOption[C, R] {
	return func(w *wrapper[C, R]) { w.binders = append(w.binders, binders...) }
}

func WithErrorHandler[C Context, R any](h ErrorHandler[C]) WrapOption[C, R] {
	return func(w *wrapper[C, R]) {
		if h != nil {
			w.onError = h
		}
	}
}

// WithDecorators applies decorators outermost first.
func WithDecorators[C Context, R any](decorators ...Decorator[C, R]) WrapOption[C, R] {
	return func(w *wrapper[C, R]) { w.decorators = append(w.decorators, decorators...) }
}

// Wrap adapts h to net/http. C is always the default Context.
func Wrap[C Context, R any](h HandlerFunc[C, R], opts ...WrapOption[C, R]) http.HandlerFunc {
	wr := &wrapper[C, R]{onError: plainError[C]}
	for _, opt := range opts {
		opt(wr)
	}
	for i := len(wr.decorators) - 1; i >= 0; i-- {
		h = wr.decorators[i](h)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, ok := NewContext(w, r).(C)
		if !ok {
			panic("handler: Wrap needs C to be handler.Context")
		}

		req, err := wr.bind(r)
		if err != nil {
			wr.onError(ctx, errors.Join(ErrBadRequest, err))
			return
		}

		resp := h(ctx, req)
		if resp == nil {
			wr.onError(ctx, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			wr.onError(ctx, err)
		}
	}
}

func (wr *wrapper[C, R]) bind(r *http.Request) (R, error) {
	var req R
	for _, b := range wr.binders {
		err := b(r, &req)
		if err == nil || errors.Is(err, binder.ErrBinderNotApplicable) {
			continue
		}
		return req, err
	}
	return req, nil
}

// plainError is used when no ErrorHandler was given. It writes the error
// key of an HTTPError as plain text.
func plainError[C Context](ctx C, err error) {
	w := ctx.ResponseWriter()
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		http.Error(w, httpErr.Key, httpErr.Code)
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
