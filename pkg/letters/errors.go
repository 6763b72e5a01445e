package letters

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrLetterNotFound indicates a letter does not exist for the requesting owner
	ErrLetterNotFound = errors.New("letter not found")

	// ErrMissingCredential indicates the Authorization header was absent or malformed
	ErrMissingCredential = errors.New("authorization header missing or malformed")

	// ErrVerificationFailed indicates the identity service rejected the token
	ErrVerificationFailed = errors.New("token verification failed")

	// ErrAuthUnavailable indicates the identity service could not be reached in time
	ErrAuthUnavailable = errors.New("auth service unavailable")

	// ErrMalformedAuthResponse indicates the identity service answered 200 without a usable owner id
	ErrMalformedAuthResponse = errors.New("malformed auth service response")
)

// AuthError carries the outcome of a failed token verification.
//
// Status holds the upstream HTTP status for a rejection, 0 when the service
// was unreachable or its response was unusable. Err wraps one of the auth
// sentinel errors so call sites can branch with errors.Is.
type AuthError struct {
	Status int
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("token verification failed (status %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("auth verify failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ValidationError reports field-level payload validation failures.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid letter payload: %s", strings.Join(names, ", "))
}

// LetterError represents an error related to letter persistence operations
type LetterError struct {
	LetterID uuid.UUID
	Op       string
	Err      error
}

func (e *LetterError) Error() string {
	return fmt.Sprintf("letter operation %s failed for letter %s: %v", e.Op, e.LetterID, e.Err)
}

func (e *LetterError) Unwrap() error {
	return e.Err
}
