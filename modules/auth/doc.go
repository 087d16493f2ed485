// Package auth mounts the password login and logout endpoints.
//
//	POST /login   {"email": "...", "password": "...", "remember": true}
//	POST /logout
//
// A user with two-factor authentication enabled is not logged in by
// POST /login: the session gets a pending challenge instead and the
// response points the client at the challenge endpoint.
package auth
