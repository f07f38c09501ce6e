package rental

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

var errStoreUnavailable = errors.New("store unavailable")

// memStore is a goroutine-safe in-memory store honouring the same
// conditional-write contracts as the SQL repositories.
type memStore struct {
	mu           sync.Mutex
	applications map[uuid.UUID]rental.Application
	properties   map[uuid.UUID]*rental.Property
	rooms        map[uuid.UUID]*rental.Room
	tenants      map[uuid.UUID]*rental.Tenant
	leases       []rental.Lease
	referrals    map[uuid.UUID]rental.Referral
	vouchers     []rental.Voucher
	statusWrites int
	lookups      int
}

func newMemStore() *memStore {
	return &memStore{
		applications: make(map[uuid.UUID]rental.Application),
		properties:   make(map[uuid.UUID]*rental.Property),
		rooms:        make(map[uuid.UUID]*rental.Room),
		tenants:      make(map[uuid.UUID]*rental.Tenant),
		referrals:    make(map[uuid.UUID]rental.Referral),
	}
}

type memApplications struct{ s *memStore }

func (r memApplications) FindByID(_ context.Context, id uuid.UUID) (*rental.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.applications[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (r memApplications) TransitionStatus(_ context.Context, id uuid.UUID, from, to rental.ApplicationStatus, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.applications[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	a.UpdatedAt = at
	a.Version++
	r.s.applications[id] = a
	r.s.statusWrites++
	return true, nil
}

type memProperties struct{ s *memStore }

func (r memProperties) FindByID(_ context.Context, id uuid.UUID) (*rental.Property, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.properties[id]; ok {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

type memRooms struct{ s *memStore }

func (r memRooms) FindByID(_ context.Context, id uuid.UUID) (*rental.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if room, ok := r.s.rooms[id]; ok {
		return room, nil
	}
	return nil, shared.ErrNotFound
}

type memTenants struct{ s *memStore }

func (r memTenants) FindByID(_ context.Context, id uuid.UUID) (*rental.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tenants[id]; ok {
		return t, nil
	}
	return nil, shared.ErrNotFound
}

type memLeases struct{ s *memStore }

func (r memLeases) FindActive(_ context.Context, propertyID, tenantID uuid.UUID, at time.Time) (*rental.Lease, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.leases {
		if l.PropertyID == propertyID && l.TenantID == tenantID && l.Covers(at) {
			lease := l
			return &lease, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memLeases) FindOverlapping(_ context.Context, propertyID, tenantID uuid.UUID, start, end time.Time) (*rental.Lease, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.leases {
		if l.PropertyID == propertyID && l.TenantID == tenantID &&
			l.StartDate.Before(end) && start.Before(l.EndDate) {
			lease := l
			return &lease, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memLeases) Create(_ context.Context, lease *rental.Lease) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.leases {
		if l.PropertyID == lease.PropertyID && l.TenantID == lease.TenantID &&
			l.StartDate.Before(lease.EndDate) && lease.StartDate.Before(l.EndDate) {
			return shared.ErrAlreadyExists
		}
	}
	r.s.leases = append(r.s.leases, *lease)
	return nil
}

type memReferrals struct{ s *memStore }

func (r memReferrals) FindByCode(_ context.Context, code string) (*rental.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.lookups++
	for _, ref := range r.s.referrals {
		if ref.Code == code {
			out := ref
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memReferrals) CompleteIfPending(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ref, ok := r.s.referrals[id]
	if !ok || ref.IsCompleted {
		return false, nil
	}
	ref.MarkCompleted(at)
	r.s.referrals[id] = ref
	return true, nil
}

type memVouchers struct {
	s *memStore
	// failOn makes the n-th Create call (1-based) fail
	failOn int
	calls  int
}

func (r *memVouchers) Create(_ context.Context, v *rental.Voucher) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.calls++
	if r.failOn > 0 && r.calls == r.failOn {
		return errStoreUnavailable
	}
	for _, existing := range r.s.vouchers {
		if existing.Code == v.Code {
			return shared.ErrAlreadyExists
		}
	}
	r.s.vouchers = append(r.s.vouchers, *v)
	return nil
}

func (r *memVouchers) FindByReferral(_ context.Context, referralID uuid.UUID) ([]*rental.Voucher, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*rental.Voucher
	for i := range r.s.vouchers {
		v := r.s.vouchers[i]
		if v.ReferralID != nil && *v.ReferralID == referralID {
			out = append(out, &v)
		}
	}
	return out, nil
}

func (r *memVouchers) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i := range r.s.vouchers {
		if r.s.vouchers[i].Status == rental.VoucherStatusActive && r.s.vouchers[i].ExpiresAt.Before(now) {
			r.s.vouchers[i].Status = rental.VoucherStatusExpired
			n++
		}
	}
	return n, nil
}

// capturePublisher records published events synchronously
type capturePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) PublishAsync(ctx context.Context, events ...shared.DomainEvent) {
	_ = p.Publish(ctx, events...)
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// MockLeaseRepository is a mock implementation of rental.LeaseRepository
type MockLeaseRepository struct {
	mock.Mock
}

func (m *MockLeaseRepository) FindActive(ctx context.Context, propertyID, tenantID uuid.UUID, at time.Time) (*rental.Lease, error) {
	args := m.Called(ctx, propertyID, tenantID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rental.Lease), args.Error(1)
}

func (m *MockLeaseRepository) FindOverlapping(ctx context.Context, propertyID, tenantID uuid.UUID, start, end time.Time) (*rental.Lease, error) {
	args := m.Called(ctx, propertyID, tenantID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rental.Lease), args.Error(1)
}

func (m *MockLeaseRepository) Create(ctx context.Context, lease *rental.Lease) error {
	args := m.Called(ctx, lease)
	return args.Error(0)
}

// MockReferralRepository is a mock implementation of rental.ReferralRepository
type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) FindByCode(ctx context.Context, code string) (*rental.Referral, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rental.Referral), args.Error(1)
}

func (m *MockReferralRepository) CompleteIfPending(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

// MockApplicationRepository is a mock implementation of rental.ApplicationRepository
type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*rental.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rental.Application), args.Error(1)
}

func (m *MockApplicationRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to rental.ApplicationStatus, at time.Time) (bool, error) {
	args := m.Called(ctx, id, from, to, at)
	return args.Bool(0), args.Error(1)
}

// MockTelemetrySink is a mock implementation of TelemetrySink
type MockTelemetrySink struct {
	mock.Mock
}

func (m *MockTelemetrySink) RecordTransition(ctx context.Context, record rental.TransitionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockChangePublisher is a mock implementation of ChangePublisher
type MockChangePublisher struct {
	mock.Mock
}

func (m *MockChangePublisher) PublishEntityChange(ctx context.Context, entities []rental.ChangedEntity) error {
	args := m.Called(ctx, entities)
	return args.Error(0)
}
