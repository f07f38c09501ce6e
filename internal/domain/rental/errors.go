package rental

import "github.com/rentals/backend/internal/domain/shared"

// Errors raised by the rental domain
var (
	ErrInvalidStatus     = shared.NewDomainError("INVALID_STATUS", "Status must be one of PENDING, APPROVED, DENIED")
	ErrInvalidTransition = shared.NewDomainError("INVALID_STATUS", "Requested status change is not allowed")
	ErrUnknownRole       = shared.NewDomainError("FORBIDDEN", "Unknown principal role")
)
