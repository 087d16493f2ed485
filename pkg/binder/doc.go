// Package binder decodes HTTP requests into structs for handler.Wrap.
//
// Each binder reads one source and its own struct tag:
//
//	type ListRequest struct {
//	    ID     int64      `path:"id"`
//	    Action string     `query:"action"`
//	    From   *time.Time `query:"from"`
//	    Code   string     `form:"code" json:"code"`
//	}
//
// JSON and Form return ErrBinderNotApplicable when the request does not
// carry their content type, so both can be listed and the matching one
// wins. time.Time fields accept RFC 3339 timestamps or YYYY-MM-DD dates.
package binder
