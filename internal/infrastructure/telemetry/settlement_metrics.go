package telemetry

import (
	"context"
	"errors"
	"strconv"

	"github.com/rentals/backend/internal/domain/rental"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MeterName is the instrumentation scope for settlement metrics.
const MeterName = "rental-backend/settlement"

// ErrMeterNil is returned when a metrics constructor receives no meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// SettlementMetrics counts settlement outcomes and application status
// transitions on OpenTelemetry instruments.
type SettlementMetrics struct {
	transitions        *Counter
	leasesProvisioned  *Counter
	referralsSettled   *Counter
	vouchersIssued     *Counter
	settlementFailures *Counter
}

// NewSettlementMetrics registers the settlement instruments on meter.
func NewSettlementMetrics(meter metric.Meter) (*SettlementMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   SettlementMetrics
		err error
	)
	if m.transitions, err = NewCounter(meter, "application_status_transitions_total",
		"Application status changes by source and target status", "{transition}"); err != nil {
		return nil, err
	}
	if m.leasesProvisioned, err = NewCounter(meter, "leases_provisioned_total",
		"Approvals that reached lease provisioning, by whether a new lease was written", "{lease}"); err != nil {
		return nil, err
	}
	if m.referralsSettled, err = NewCounter(meter, "referrals_settled_total",
		"Referrals completed by an approval", "{referral}"); err != nil {
		return nil, err
	}
	if m.vouchersIssued, err = NewCounter(meter, "vouchers_issued_total",
		"Reward vouchers issued to referral participants", "{voucher}"); err != nil {
		return nil, err
	}
	if m.settlementFailures, err = NewCounter(meter, "settlement_failures_total",
		"Settlement steps that failed, by stage", "{failure}"); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *SettlementMetrics) RecordLeaseProvisioned(ctx context.Context, created bool) {
	m.leasesProvisioned.Inc(ctx, AttrLeaseCreated.Bool(created))
}

func (m *SettlementMetrics) RecordReferralSettled(ctx context.Context) {
	m.referralsSettled.Inc(ctx)
}

func (m *SettlementMetrics) RecordVouchersIssued(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	m.vouchersIssued.Add(ctx, int64(count))
}

func (m *SettlementMetrics) RecordSettlementFailure(ctx context.Context, stage string) {
	m.settlementFailures.Inc(ctx, AttrSettlementStage.String(stage))
}

// RecordTransition never fails; the error return satisfies the sink contract.
// The counter carries status labels only; the ids go on a span event.
func (m *SettlementMetrics) RecordTransition(ctx context.Context, record rental.TransitionRecord) error {
	m.transitions.Inc(ctx,
		AttrFromStatus.String(record.PreviousStatus.String()),
		AttrToStatus.String(record.NewStatus.String()),
		AttrLeaseCreated.String(strconv.FormatBool(record.LeaseCreated)),
	)
	AddEvent(trace.SpanFromContext(ctx), TransitionEventName,
		SpanAttrApplicationID, record.ApplicationID.String(),
		SpanAttrPropertyID, record.PropertyID.String(),
		SpanAttrPreviousStatus, record.PreviousStatus.String(),
		SpanAttrNewStatus, record.NewStatus.String(),
		SpanAttrLeaseCreated, record.LeaseCreated,
	)
	return nil
}
