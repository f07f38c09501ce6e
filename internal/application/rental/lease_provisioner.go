package rental

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LeaseProvisioner ensures exactly one active lease exists for an approved application
type LeaseProvisioner struct {
	leaseRepo rental.LeaseRepository
	policy    SettlementPolicy
	logger    *zap.Logger
}

// NewLeaseProvisioner creates a new LeaseProvisioner
func NewLeaseProvisioner(leaseRepo rental.LeaseRepository, policy SettlementPolicy, logger *zap.Logger) *LeaseProvisioner {
	return &LeaseProvisioner{
		leaseRepo: leaseRepo,
		policy:    policy,
		logger:    logger,
	}
}

// Ensure returns the lease covering at for the application's property and
// tenant, creating it if none exists. created reports whether this call
// inserted the lease. Errors are *SettlementError.
func (p *LeaseProvisioner) Ensure(
	ctx context.Context,
	app *rental.Application,
	property *rental.Property,
	tenantID uuid.UUID,
	at time.Time,
) (lease *rental.Lease, created bool, err error) {
	existing, err := p.findActive(ctx, property.ID, tenantID, at)
	if err != nil {
		return nil, false, newSettlementError(StageLease, err)
	}
	if existing != nil {
		p.logger.Info("reusing active lease",
			zap.String("application_id", app.ID.String()),
			zap.String("lease_id", existing.ID.String()),
		)
		return existing, false, nil
	}

	rent := property.ResolveMonthlyPrice(p.policy.FallbackMonthlyPrice)
	lease, err = rental.NewLease(property.ID, tenantID, rent, p.policy.Deposit(rent), at, p.policy.LeaseTerm)
	if err != nil {
		return nil, false, newSettlementError(StageLease, err)
	}
	appID := app.ID
	lease.ApplicationID = &appID

	if err := p.leaseRepo.Create(ctx, lease); err != nil {
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, false, newSettlementError(StageLease, fmt.Errorf("failed to create lease: %w", err))
		}
		// A concurrent approval won the insert. Its lease may start after at,
		// so look for anything overlapping the range we tried to claim.
		existing, findErr := p.findOverlapping(ctx, lease)
		if findErr != nil {
			return nil, false, newSettlementError(StageLease, findErr)
		}
		if existing == nil {
			return nil, false, newSettlementError(StageLease, fmt.Errorf("lease conflict reported but no overlapping lease found: %w", err))
		}
		p.logger.Info("lease created concurrently, reusing",
			zap.String("application_id", app.ID.String()),
			zap.String("lease_id", existing.ID.String()),
		)
		return existing, false, nil
	}

	p.logger.Info("lease provisioned",
		zap.String("application_id", app.ID.String()),
		zap.String("lease_id", lease.ID.String()),
		zap.String("rent_amount", lease.RentAmount.String()),
		zap.String("deposit_amount", lease.DepositAmount.String()),
	)
	return lease, true, nil
}

func (p *LeaseProvisioner) findActive(ctx context.Context, propertyID, tenantID uuid.UUID, at time.Time) (*rental.Lease, error) {
	lease, err := p.leaseRepo.FindActive(ctx, propertyID, tenantID, at)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up active lease: %w", err)
	}
	return lease, nil
}

func (p *LeaseProvisioner) findOverlapping(ctx context.Context, candidate *rental.Lease) (*rental.Lease, error) {
	lease, err := p.leaseRepo.FindOverlapping(ctx, candidate.PropertyID, candidate.TenantID, candidate.StartDate, candidate.EndDate)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up overlapping lease: %w", err)
	}
	return lease, nil
}
