// Package auth verifies email and password credentials.
//
// Passwords are stored as bcrypt hashes. Authenticate answers
// ErrInvalidCredentials for an unknown email and for a wrong password alike,
// and spends a bcrypt comparison in both cases so response timing does not
// reveal which accounts exist.
//
//	svc := auth.NewPasswordService(users, auth.WithBcryptCost(12))
//	user, err := svc.Authenticate(ctx, email, password)
//	if errors.Is(err, auth.ErrInvalidCredentials) {
//	    // record auth.login_failed
//	}
//
// The second factor is not part of this package; see pkg/twofactor.
package auth
