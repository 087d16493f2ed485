package binder

import "errors"

// ErrBinderNotApplicable means the request carries nothing for this binder,
// for example a JSON binder seeing a form post. handler.Wrap moves on.
var ErrBinderNotApplicable = errors.New("binder: not applicable")

var (
	ErrFailedToParseJSON  = errors.New("binder: malformed JSON body")
	ErrFailedToParseForm  = errors.New("binder: malformed form body")
	ErrFailedToParseQuery = errors.New("binder: malformed query string")
	ErrFailedToParsePath  = errors.New("binder: malformed path parameter")
)
