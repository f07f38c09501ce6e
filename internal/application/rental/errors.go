package rental

import (
	"errors"
	"fmt"
)

// Settlement stages
const (
	StageLease    = "lease"
	StageReferral = "referral"
	StageVoucher  = "voucher"
)

// SettlementError is a failure in a side effect that runs after the status
// change committed. It is logged and counted but never returned to the caller.
type SettlementError struct {
	Stage string
	Err   error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement %s: %v", e.Stage, e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}

func newSettlementError(stage string, err error) *SettlementError {
	return &SettlementError{Stage: stage, Err: err}
}

// StageOf returns the stage of a settlement error, or "" if err is not one
func StageOf(err error) string {
	var se *SettlementError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
