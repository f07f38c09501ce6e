package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/domain/shared"
	"github.com/rentals/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// UpdateStatusCommand is a request to move an application to a new status
type UpdateStatusCommand struct {
	ApplicationID   uuid.UUID
	RequestedStatus string
	Principal       rental.Principal
}

// ApplicationResult is the application with its related entities resolved
// for display, plus the lease when one exists.
type ApplicationResult struct {
	Application *rental.Application
	Property    *rental.Property
	Room        *rental.Room
	Tenant      *rental.Tenant
	Lease       *rental.Lease
	// PreviousStatus is the status observed before the call
	PreviousStatus rental.ApplicationStatus
	LeaseCreated   bool
}

// StatusTransitionService composes the access guard, status update, lease
// provisioning and referral settlement into one request-scoped operation.
type StatusTransitionService struct {
	applicationRepo rental.ApplicationRepository
	propertyRepo    rental.PropertyRepository
	roomRepo        rental.RoomRepository
	tenantRepo      rental.TenantRepository
	leaseRepo       rental.LeaseRepository
	provisioner     *LeaseProvisioner
	settlement      *ReferralSettlementService
	publisher       shared.EventPublisher
	recorder        SettlementRecorder
	logger          *zap.Logger
	now             func() time.Time
}

// StatusTransitionServiceOption is a functional option for configuring StatusTransitionService
type StatusTransitionServiceOption func(*StatusTransitionService)

// WithEventPublisher sets the publisher used for post-commit domain events
func WithEventPublisher(publisher shared.EventPublisher) StatusTransitionServiceOption {
	return func(s *StatusTransitionService) {
		s.publisher = publisher
	}
}

// WithSettlementRecorder sets the metrics recorder
func WithSettlementRecorder(recorder SettlementRecorder) StatusTransitionServiceOption {
	return func(s *StatusTransitionService) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) StatusTransitionServiceOption {
	return func(s *StatusTransitionService) {
		s.now = now
	}
}

// NewStatusTransitionService creates a new StatusTransitionService
func NewStatusTransitionService(
	applicationRepo rental.ApplicationRepository,
	propertyRepo rental.PropertyRepository,
	roomRepo rental.RoomRepository,
	tenantRepo rental.TenantRepository,
	leaseRepo rental.LeaseRepository,
	provisioner *LeaseProvisioner,
	settlement *ReferralSettlementService,
	logger *zap.Logger,
	opts ...StatusTransitionServiceOption,
) *StatusTransitionService {
	s := &StatusTransitionService{
		applicationRepo: applicationRepo,
		propertyRepo:    propertyRepo,
		roomRepo:        roomRepo,
		tenantRepo:      tenantRepo,
		leaseRepo:       leaseRepo,
		provisioner:     provisioner,
		settlement:      settlement,
		recorder:        nopRecorder{},
		logger:          logger,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateStatus applies cmd. Validation, authorization and lookup failures
// return before anything is written. A failed status write aborts the call.
// Lease and referral failures after the write are logged and never returned.
func (s *StatusTransitionService) UpdateStatus(ctx context.Context, cmd UpdateStatusCommand) (result *ApplicationResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "application", "update_status",
		telemetry.WithAttribute("application.id", cmd.ApplicationID.String()),
		telemetry.WithAttribute("application.requested_status", cmd.RequestedStatus),
	)
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetOK(span)
		}
		span.End()
	}()

	requested, err := rental.ParseApplicationStatus(cmd.RequestedStatus)
	if err != nil {
		return nil, err
	}

	result, err = s.load(ctx, cmd.ApplicationID)
	if err != nil {
		return nil, err
	}
	if err := rental.AuthorizeStatusChange(cmd.Principal, result.Property); err != nil {
		s.logger.Warn("status change denied",
			zap.String("application_id", cmd.ApplicationID.String()),
			zap.String("principal_id", cmd.Principal.ID.String()),
			zap.String("principal_role", string(cmd.Principal.Role)),
		)
		return nil, err
	}

	app := result.Application
	if !app.Status.CanTransitionTo(requested) {
		return nil, shared.NewDomainError(rental.ErrInvalidTransition.Code,
			fmt.Sprintf("Cannot change application from %s to %s", app.Status, requested))
	}

	now := s.now()
	result.PreviousStatus = app.Status
	if app.Status != requested {
		if err := s.transition(ctx, app, requested, now); err != nil {
			return nil, err
		}
	}

	var events []shared.DomainEvent
	if requested == rental.ApplicationStatusApproved {
		events = s.settle(ctx, result, now)
	}

	statusEvent := rental.NewApplicationStatusChangedEvent(app, result.PreviousStatus, result.Lease, result.LeaseCreated, now)
	events = append([]shared.DomainEvent{statusEvent}, events...)
	if s.publisher != nil {
		s.publisher.PublishAsync(ctx, events...)
	}

	s.logger.Info("application status updated",
		zap.String("application_id", app.ID.String()),
		zap.String("previous_status", result.PreviousStatus.String()),
		zap.String("new_status", app.Status.String()),
		zap.Bool("lease_created", result.LeaseCreated),
	)
	return result, nil
}

// transition performs the compare-and-set on the stored status. Losing the
// race to a request that set the same status is treated as success.
func (s *StatusTransitionService) transition(ctx context.Context, app *rental.Application, requested rental.ApplicationStatus, now time.Time) error {
	changed, err := s.applicationRepo.TransitionStatus(ctx, app.ID, app.Status, requested, now)
	if err != nil {
		s.logger.Error("failed to update application status",
			zap.String("application_id", app.ID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to update application status: %w", err)
	}
	if changed {
		_, err := app.ChangeStatus(requested, now)
		return err
	}

	current, err := s.applicationRepo.FindByID(ctx, app.ID)
	if err != nil {
		return fmt.Errorf("failed to reload application: %w", err)
	}
	if current.Status != requested {
		return shared.NewDomainError(shared.ErrConcurrencyConflict.Code,
			fmt.Sprintf("Application status changed concurrently to %s", current.Status))
	}
	s.logger.Info("status already applied by a concurrent request",
		zap.String("application_id", app.ID.String()),
	)
	*app = *current
	return nil
}

// settle runs lease provisioning and referral settlement, returning the
// domain events they produced. Nothing here can fail the call.
func (s *StatusTransitionService) settle(ctx context.Context, result *ApplicationResult, now time.Time) []shared.DomainEvent {
	if result.Tenant == nil {
		s.logger.Info("approved application has no tenant, skipping lease",
			zap.String("application_id", result.Application.ID.String()),
		)
		return nil
	}

	lease, created, err := s.provisioner.Ensure(ctx, result.Application, result.Property, result.Tenant.ID, now)
	if err != nil {
		s.reportSettlementError(ctx, result.Application.ID, err)
		return nil
	}
	result.Lease = lease
	result.LeaseCreated = created
	s.recorder.RecordLeaseProvisioned(ctx, created)

	outcome, err := s.settlement.Settle(ctx, result.Tenant, now)
	if err != nil {
		s.reportSettlementError(ctx, result.Application.ID, err)
	}
	if outcome == nil {
		return nil
	}
	if outcome.Settled {
		s.recorder.RecordReferralSettled(ctx)
	}
	if len(outcome.Vouchers) > 0 {
		s.recorder.RecordVouchersIssued(ctx, len(outcome.Vouchers))
	}
	return outcome.Events
}

func (s *StatusTransitionService) reportSettlementError(ctx context.Context, applicationID uuid.UUID, err error) {
	stage := StageOf(err)
	s.logger.Error("settlement step failed after status change",
		zap.String("application_id", applicationID.String()),
		zap.String("stage", stage),
		zap.Error(err),
	)
	s.recorder.RecordSettlementFailure(ctx, stage)
}

// GetApplication returns the application with its related entities and its
// active lease, if the principal may view it.
func (s *StatusTransitionService) GetApplication(ctx context.Context, id uuid.UUID, principal rental.Principal) (*ApplicationResult, error) {
	result, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := rental.AuthorizeView(principal, result.Application, result.Property); err != nil {
		return nil, err
	}
	result.PreviousStatus = result.Application.Status
	if result.Tenant == nil {
		return result, nil
	}
	lease, err := s.leaseRepo.FindActive(ctx, result.Property.ID, result.Tenant.ID, s.now())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to load lease: %w", err)
	}
	result.Lease = lease
	return result, nil
}

func (s *StatusTransitionService) load(ctx context.Context, id uuid.UUID) (*ApplicationResult, error) {
	app, err := s.applicationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Application not found", "failed to load application")
	}
	property, err := s.propertyRepo.FindByID(ctx, app.PropertyID)
	if err != nil {
		return nil, notFoundOr(err, "Property not found", "failed to load property")
	}
	result := &ApplicationResult{Application: app, Property: property}

	if app.RoomID != nil {
		room, err := s.roomRepo.FindByID(ctx, *app.RoomID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("failed to load room: %w", err)
		}
		result.Room = room
	}
	if app.HasTenant() {
		tenant, err := s.tenantRepo.FindByID(ctx, *app.TenantID)
		if err != nil {
			return nil, notFoundOr(err, "Tenant not found", "failed to load tenant")
		}
		result.Tenant = tenant
	}
	return result, nil
}

func notFoundOr(err error, notFoundMsg, wrapMsg string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainError(shared.ErrNotFound.Code, notFoundMsg)
	}
	return fmt.Errorf("%s: %w", wrapMsg, err)
}
