package auth

import "errors"

// Error texts double as wire messages: handlers serialize them verbatim into
// the {"error": ...} body, so they keep the casing clients already match on.
var (
	ErrNoToken          = errors.New("No token provided")
	ErrMalformedToken   = errors.New("Invalid token format")
	ErrInvalidSignature = errors.New("Invalid signature")
	ErrTokenExpired     = errors.New("Token expired")

	ErrUserNotFound       = errors.New("User not found or inactive")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrUsernameTaken      = errors.New("Username already exists")
	ErrWrongPassword      = errors.New("Current password is incorrect")

	ErrForbidden              = errors.New("Forbidden")
	ErrPasswordChangeRequired = errors.New("Password change required")
)

// IsAuthError reports whether err is one of the authentication failures
// above. Anything else (a failed store read, for instance) is an
// infrastructure error whose text must not reach the client.
func IsAuthError(err error) bool {
	for _, known := range []error{
		ErrNoToken, ErrMalformedToken, ErrInvalidSignature, ErrTokenExpired,
		ErrUserNotFound, ErrInvalidCredentials, ErrUsernameTaken,
		ErrWrongPassword, ErrForbidden, ErrPasswordChangeRequired,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
