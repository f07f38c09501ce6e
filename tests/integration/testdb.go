// Package integration runs the rental repositories and services against a
// real PostgreSQL started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rentals/backend/internal/infrastructure/migration"
	"github.com/rentals/backend/migrations"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB is a migrated database in its own container
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	t         *testing.T
}

// NewTestDB starts a PostgreSQL container and applies the embedded migrations
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("rentals_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("rentals123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(20)

	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")

	tdb := &TestDB{DB: db, SqlDB: sqlDB, Container: container, t: t}
	t.Cleanup(tdb.Close)
	return tdb
}

// Close closes the connection pool and terminates the container
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

// CreateProperty inserts a property managed by managerID
func (tdb *TestDB) CreateProperty(managerID uuid.UUID, monthly, legacy *decimal.Decimal) uuid.UUID {
	tdb.t.Helper()
	id := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO properties (id, manager_id, title, monthly_price, price)
		VALUES (?, ?, ?, ?, ?)
	`, id, managerID, "Test Property "+id.String()[:8], monthly, legacy).Error
	require.NoError(tdb.t, err, "Failed to create test property")
	return id
}

// CreateTenant inserts a tenant, optionally carrying a referral code
func (tdb *TestDB) CreateTenant(referredByCode *string) uuid.UUID {
	tdb.t.Helper()
	id := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO tenants (id, name, email, referred_by_code)
		VALUES (?, ?, ?, ?)
	`, id, "Tenant "+id.String()[:8], id.String()[:8]+"@example.com", referredByCode).Error
	require.NoError(tdb.t, err, "Failed to create test tenant")
	return id
}

// CreateApplication inserts a PENDING application
func (tdb *TestDB) CreateApplication(propertyID uuid.UUID, tenantID *uuid.UUID) uuid.UUID {
	tdb.t.Helper()
	id := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO applications (id, property_id, tenant_id, status)
		VALUES (?, ?, ?, 'PENDING')
	`, id, propertyID, tenantID).Error
	require.NoError(tdb.t, err, "Failed to create test application")
	return id
}

// CreateReferral inserts a pending referral
func (tdb *TestDB) CreateReferral(code string, referrerID, referredID uuid.UUID) uuid.UUID {
	tdb.t.Helper()
	id := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO referrals (id, code, referrer_id, referred_id)
		VALUES (?, ?, ?, ?)
	`, id, code, referrerID, referredID).Error
	require.NoError(tdb.t, err, "Failed to create test referral")
	return id
}

// Count returns the number of rows matching where
func (tdb *TestDB) Count(table, where string, args ...any) int64 {
	tdb.t.Helper()
	var n int64
	require.NoError(tdb.t, tdb.DB.Table(table).Where(where, args...).Count(&n).Error)
	return n
}
