package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGormApplicationRepository_FindByID(t *testing.T) {
	t.Run("finds existing application", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormApplicationRepository(db)

		id, propertyID, tenantID := uuid.New(), uuid.New(), uuid.New()
		applied := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "version", "property_id", "room_id", "tenant_id", "status", "applied_at"}).
			AddRow(id, applied, applied, 1, propertyID, nil, tenantID, "PENDING", applied)

		mock.ExpectQuery(`SELECT \* FROM "applications" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnRows(rows)

		app, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, app.ID)
		assert.Equal(t, rental.ApplicationStatusPending, app.Status)
		assert.Nil(t, app.RoomID)
		require.NotNil(t, app.TenantID)
		assert.Equal(t, tenantID, *app.TenantID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing row to ErrNotFound", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormApplicationRepository(db)

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "applications" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByID(context.Background(), id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormApplicationRepository_TransitionStatus(t *testing.T) {
	at := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	t.Run("conditional update wins", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormApplicationRepository(db)

		id := uuid.New()
		mock.ExpectExec(`UPDATE "applications" SET .*"version"=version \+ 1.* WHERE id = \$\d+ AND status = \$\d+`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), id, "PENDING").
			WillReturnResult(sqlmock.NewResult(0, 1))

		changed, err := repo.TransitionStatus(context.Background(), id, rental.ApplicationStatusPending, rental.ApplicationStatusApproved, at)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale status affects no rows", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormApplicationRepository(db)

		id := uuid.New()
		mock.ExpectExec(`UPDATE "applications" SET .* WHERE id = \$\d+ AND status = \$\d+`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), id, "PENDING").
			WillReturnResult(sqlmock.NewResult(0, 0))

		changed, err := repo.TransitionStatus(context.Background(), id, rental.ApplicationStatusPending, rental.ApplicationStatusDenied, at)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates database errors", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormApplicationRepository(db)

		mock.ExpectExec(`UPDATE "applications"`).WillReturnError(assert.AnError)

		_, err := repo.TransitionStatus(context.Background(), uuid.New(), rental.ApplicationStatusPending, rental.ApplicationStatusApproved, at)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestGormReferralRepository_CompleteIfPending(t *testing.T) {
	at := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	t.Run("single statement guarded on is_completed", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormReferralRepository(db)

		id := uuid.New()
		mock.ExpectExec(`UPDATE "referrals" SET .*"is_completed"=.* WHERE id = \$\d+ AND is_completed = \$\d+`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), id, false).
			WillReturnResult(sqlmock.NewResult(0, 1))

		won, err := repo.CompleteIfPending(context.Background(), id, at)
		require.NoError(t, err)
		assert.True(t, won)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already completed", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormReferralRepository(db)

		mock.ExpectExec(`UPDATE "referrals" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

		won, err := repo.CompleteIfPending(context.Background(), uuid.New(), at)
		require.NoError(t, err)
		assert.False(t, won)
	})
}

func TestGormReferralRepository_FindByCode(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormReferralRepository(db)

	id, referrer, referred := uuid.New(), uuid.New(), uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "code", "referrer_id", "referred_id", "is_completed", "completed_at", "voucher_generated"}).
		AddRow(id, now, now, "REF123", referrer, referred, false, nil, false)
	mock.ExpectQuery(`SELECT \* FROM "referrals" WHERE code = \$1 ORDER BY .* LIMIT .*`).
		WithArgs("REF123", 1).
		WillReturnRows(rows)

	ref, err := repo.FindByCode(context.Background(), "REF123")
	require.NoError(t, err)
	assert.Equal(t, referrer, ref.ReferrerID)
	assert.Equal(t, referred, ref.ReferredID)
	assert.True(t, ref.IsPending())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLeaseRepository_CreateConflict(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormLeaseRepository(db)

	rent := decimal.NewFromInt(4500)
	lease, err := rental.NewLease(uuid.New(), uuid.New(), rent, rent, time.Now().UTC(), rental.DefaultLeaseTerm)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO "leases"`).
		WillReturnError(&pgconn.PgError{Code: "23P01", ConstraintName: "leases_no_overlap"})

	err = repo.Create(context.Background(), lease)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestGormLeaseRepository_FindActive(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormLeaseRepository(db)

	propertyID, tenantID := uuid.New(), uuid.New()
	at := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT \* FROM "leases" WHERE property_id = \$1 AND tenant_id = \$2 AND start_date <= \$3 AND end_date > \$4 ORDER BY start_date DESC`).
		WithArgs(propertyID, tenantID, at, at, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindActive(context.Background(), propertyID, tenantID, at)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormLeaseRepository_FindOverlapping(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormLeaseRepository(db)

	propertyID, tenantID := uuid.New(), uuid.New()
	start := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	end := start.Add(rental.DefaultLeaseTerm)
	mock.ExpectQuery(`SELECT \* FROM "leases" WHERE property_id = \$1 AND tenant_id = \$2 AND start_date < \$3 AND end_date > \$4 ORDER BY start_date ASC`).
		WithArgs(propertyID, tenantID, end, start, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindOverlapping(context.Background(), propertyID, tenantID, start, end)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormVoucherRepository_ExpireDue(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormVoucherRepository(db)

	now := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE "vouchers" SET .* WHERE status = \$\d+ AND expires_at < \$\d+`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "ACTIVE", now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpireDue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
