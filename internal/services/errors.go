package services

import "errors"

var (
	// ErrInvalidToken signals a present-but-invalid credential. An absent
	// credential is not an error: the caller is treated as anonymous.
	ErrInvalidToken = errors.New("invalid or expired token")

	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateReport is returned when the duplicate guard blocks a
	// submission for the same plate and identity inside the rolling window.
	ErrDuplicateReport = errors.New("duplicate report limit reached")
)

// ValidationError reports malformed or missing submission input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// BanError rejects a submission from a suspended account and carries the
// stored ban reason.
type BanError struct {
	Reason string
}

func (e *BanError) Error() string {
	return "account suspended: " + e.Reason
}
