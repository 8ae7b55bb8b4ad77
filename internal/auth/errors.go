package auth

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidCredentials covers both an unknown identifier and a wrong
	// password. The two causes share one message on purpose so a caller
	// cannot probe which part was wrong.
	ErrInvalidCredentials = errors.New("invalid email/username or password")
	// ErrAccountInactive indicates the credentials were right but the
	// account has been deactivated.
	ErrAccountInactive = errors.New("account is inactive")
	// ErrInvalidResetToken indicates a password-reset token that is
	// malformed, expired, or signed for another purpose.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// ValidationError carries every violated registration rule so the caller
// can render them all in one pass.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}
