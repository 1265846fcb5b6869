package auth

import "errors"

// Token failure kinds. Every kind except ErrExpiredToken also matches
// ErrInvalidToken under errors.Is.
var (
	ErrInvalidToken = errors.New("auth: invalid token")

	ErrInvalidSignature  = errors.New("auth: invalid token signature")
	ErrExpiredToken      = errors.New("auth: token expired")
	ErrMalformedToken    = errors.New("auth: malformed token")
	ErrUnsupportedFormat = errors.New("auth: unsupported token format")
	ErrEmptyClaims       = errors.New("auth: token claims string is empty")

	ErrWeakSigningKey = errors.New("auth: signing key must be at least 256 bits")
)

// Authorization outcomes returned by Requirement.Permits.
var (
	ErrUnauthenticated = errors.New("auth: authentication required")
	ErrForbidden       = errors.New("auth: access denied")
)

var failureLabels = map[error]string{
	ErrInvalidSignature:  "invalid_signature",
	ErrExpiredToken:      "expired",
	ErrMalformedToken:    "malformed",
	ErrUnsupportedFormat: "unsupported",
	ErrEmptyClaims:       "empty_claims",
}

// TokenError carries the failure kind and the underlying parser error.
type TokenError struct {
	Kind error
	Err  error
}

func newTokenError(kind, err error) *TokenError {
	return &TokenError{Kind: kind, Err: err}
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return e.Kind.Error() + ": " + e.Err.Error()
	}
	return e.Kind.Error()
}

func (e *TokenError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Is makes every non-expiry failure match ErrInvalidToken.
func (e *TokenError) Is(target error) bool {
	return target == ErrInvalidToken && e.Kind != ErrExpiredToken
}

// Label is the short diagnostic name of the failure kind.
func (e *TokenError) Label() string {
	if label, ok := failureLabels[e.Kind]; ok {
		return label
	}
	return "unknown"
}

// FailureLabel returns the diagnostic label for any token error.
func FailureLabel(err error) string {
	var tokenErr *TokenError
	if errors.As(err, &tokenErr) {
		return tokenErr.Label()
	}
	return "unknown"
}
