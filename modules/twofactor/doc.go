// Package twofactor mounts the second login step and the two-factor
// settings endpoints.
//
// Challenge endpoints work on the session's pending challenge:
//
//	GET  /two-factor/challenge   is a challenge pending?
//	POST /two-factor/challenge   {"code": "123456"}
//	POST /two-factor/recovery    {"code": "ABCD-EFGH-JKLM"}
//
// Both POST endpoints share a token bucket keyed by the challenged user, so
// switching between authenticator and recovery codes does not reset the
// attempt budget. Every failed code answers "invalid code" and every
// storage failure "please try again later".
//
// Settings endpoints require an authenticated session:
//
//	GET  /two-factor/setup
//	POST /two-factor/enable          {"code": "123456"}
//	POST /two-factor/disable         {"code": "123456"}
//	POST /two-factor/recovery-codes
package twofactor
