package store

import "github.com/natvps/panel/pkg/auth"

// Aliases of the auth sentinels so *Users satisfies auth.UserStorage
// without translation.
var (
	ErrUserNotFound = auth.ErrUserNotFound
	ErrEmailTaken   = auth.ErrEmailAlreadyExists
)
