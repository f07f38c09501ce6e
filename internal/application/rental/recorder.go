package rental

import "context"

// SettlementRecorder receives settlement counters. Implementations must not block.
type SettlementRecorder interface {
	RecordLeaseProvisioned(ctx context.Context, created bool)
	RecordReferralSettled(ctx context.Context)
	RecordVouchersIssued(ctx context.Context, count int)
	RecordSettlementFailure(ctx context.Context, stage string)
}

type nopRecorder struct{}

func (nopRecorder) RecordLeaseProvisioned(context.Context, bool) {}
func (nopRecorder) RecordReferralSettled(context.Context) {}
func (nopRecorder) RecordVouchersIssued(context.Context, int) {}
func (nopRecorder) RecordSettlementFailure(context.Context, string) {}
