// Package handler turns typed functions into http.HandlerFunc values.
//
// A HandlerFunc receives a Context and a request struct filled by binders
// and returns a Response:
//
//	type verifyRequest struct {
//	    Code string `form:"code" json:"code"`
//	}
//
//	func (h *Handler) verify(ctx handler.Context, req verifyRequest) handler.Response {
//	    if req.Code == "" {
//	        return handler.JSONError(handler.NewValidationError("code", "required"))
//	    }
//	    return handler.JSON(result)
//	}
//
//	r.Post("/challenge", handler.Wrap(h.verify,
//	    handler.WithBinders[handler.Context, verifyRequest](binder.JSON(), binder.Form()),
//	    handler.WithErrorHandler[handler.Context, verifyRequest](errHandler),
//	))
//
// Responses are JSON, empty, redirects and downloads. Binding and render
// failures go to the ErrorHandler; NewErrorHandler logs them and answers
// with a JSON error body.
package handler
