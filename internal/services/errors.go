package services

import "errors"

// Error taxonomy for the authentication core. Handlers map these to HTTP
// statuses; none of them is fatal to the process.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrInvalidState       = errors.New("invalid authentication state")
	ErrInvalidCode        = errors.New("invalid one-time code")
	ErrEngineUnavailable  = errors.New("verification agent unavailable")
	ErrSessionExpired     = errors.New("session expired")
	// ErrVerificationTimeout is returned once the turn cap is exhausted; the
	// pending attempt is discarded and the client must restart from
	// credentials.
	ErrVerificationTimeout = errors.New("verification timed out")
)
