package rental

import "golang.org/x/text/cases"

// ApplicationStatus represents the lifecycle state of a rental application
type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusApproved ApplicationStatus = "APPROVED"
	ApplicationStatusDenied   ApplicationStatus = "DENIED"
)

var statusFolder = cases.Fold()

// ParseApplicationStatus normalizes a requested status. Matching is
// case-insensitive against the three canonical values and anything else,
// surrounding whitespace included, fails with ErrInvalidStatus.
func ParseApplicationStatus(raw string) (ApplicationStatus, error) {
	switch statusFolder.String(raw) {
	case "pending":
		return ApplicationStatusPending, nil
	case "approved":
		return ApplicationStatusApproved, nil
	case "denied":
		return ApplicationStatusDenied, nil
	default:
		return "", ErrInvalidStatus
	}
}

// IsValid reports whether s is one of the canonical statuses
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusApproved, ApplicationStatusDenied:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the state machine allows s -> next.
// Re-requesting the current status is always allowed.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	return s == ApplicationStatusPending
}

// String returns the string representation
func (s ApplicationStatus) String() string {
	return string(s)
}
