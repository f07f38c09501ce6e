package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBInstrumentationConfig controls the GORM tracing and metrics plugin.
type DBInstrumentationConfig struct {
	TracingEnabled     bool          // register otelgorm spans per statement
	LogFullSQL         bool          // keep bind variables in span statements; dev only
	SlowQueryThreshold time.Duration // statements slower than this are flagged
	DBName             string
}

func DefaultDBInstrumentationConfig() DBInstrumentationConfig {
	return DBInstrumentationConfig{
		SlowQueryThreshold: 200 * time.Millisecond,
		DBName:             "postgresql",
	}
}

type queryStartKey struct{}

type dbMetrics struct {
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter
}

// DBInstrumentation is a gorm.Plugin that annotates the active span with
// statement details and, when a meter is supplied, records query and
// connection pool metrics.
type DBInstrumentation struct {
	config       DBInstrumentationConfig
	meter        metric.Meter
	logger       *zap.Logger
	metrics      *dbMetrics
	registration metric.Registration
}

var _ gorm.Plugin = (*DBInstrumentation)(nil)

// NewDBInstrumentation builds the plugin. A nil meter disables metrics.
func NewDBInstrumentation(cfg DBInstrumentationConfig, meter metric.Meter, logger *zap.Logger) (*DBInstrumentation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = DefaultDBInstrumentationConfig().SlowQueryThreshold
	}
	if cfg.DBName == "" {
		cfg.DBName = DefaultDBInstrumentationConfig().DBName
	}

	inst := &DBInstrumentation{config: cfg, meter: meter, logger: logger}
	if meter == nil {
		return inst, nil
	}

	var (
		m   dbMetrics
		err error
	)
	if m.queryTotal, err = NewCounter(meter, "db_query_total",
		"Database statements by operation and table", "{query}"); err != nil {
		return nil, err
	}
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.slowQueryTotal, err = NewCounter(meter, "db_slow_query_total",
		"Database statements slower than the configured threshold", "{query}"); err != nil {
		return nil, err
	}
	inst.metrics = &m
	return inst, nil
}

func (i *DBInstrumentation) Name() string {
	return "rental:db_instrumentation"
}

// Initialize registers otelgorm (if enabled), the timing callbacks and the
// pool observer. Called by db.Use.
func (i *DBInstrumentation) Initialize(db *gorm.DB) error {
	if i.config.TracingEnabled {
		opts := []otelgorm.Option{otelgorm.WithDBName(i.config.DBName)}
		if !i.config.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return fmt.Errorf("register otelgorm: %w", err)
		}
	}

	if err := i.registerCallbacks(db); err != nil {
		return err
	}

	if i.meter != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("get sql.DB for pool metrics: %w", err)
		}
		if err := i.observePool(sqlDB); err != nil {
			return err
		}
	}

	i.logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", i.config.TracingEnabled),
		zap.Bool("metrics", i.metrics != nil),
		zap.Bool("log_full_sql", i.config.LogFullSQL),
		zap.Duration("slow_query_threshold", i.config.SlowQueryThreshold),
	)
	return nil
}

// Close stops pool observation.
func (i *DBInstrumentation) Close() error {
	if i.registration == nil {
		return nil
	}
	return i.registration.Unregister()
}

func (i *DBInstrumentation) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	errs := []error{
		cb.Create().Before("gorm:create").Register("rental_db:before_create", markStart),
		cb.Query().Before("gorm:query").Register("rental_db:before_query", markStart),
		cb.Update().Before("gorm:update").Register("rental_db:before_update", markStart),
		cb.Delete().Before("gorm:delete").Register("rental_db:before_delete", markStart),
		cb.Row().Before("gorm:row").Register("rental_db:before_row", markStart),
		cb.Raw().Before("gorm:raw").Register("rental_db:before_raw", markStart),

		cb.Create().After("gorm:create").Register("rental_db:after_create", i.after("INSERT")),
		cb.Query().After("gorm:query").Register("rental_db:after_query", i.after("SELECT")),
		cb.Update().After("gorm:update").Register("rental_db:after_update", i.after("UPDATE")),
		cb.Delete().After("gorm:delete").Register("rental_db:after_delete", i.after("DELETE")),
		cb.Row().After("gorm:row").Register("rental_db:after_row", i.after("")),
		cb.Raw().After("gorm:raw").Register("rental_db:after_raw", i.after("")),
	}
	return errors.Join(errs...)
}

func markStart(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}
	db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
}

// after returns the post-statement hook. An empty operation is detected
// from the rendered SQL.
func (i *DBInstrumentation) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		op := operation
		if op == "" {
			op = detectOperation(db.Statement.SQL.String())
		}

		var elapsed time.Duration
		start, timed := ctx.Value(queryStartKey{}).(time.Time)
		if timed {
			elapsed = time.Since(start)
		}
		slow := timed && elapsed > i.config.SlowQueryThreshold
		failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)

		i.annotateSpan(ctx, db, elapsed, slow, failed)

		if i.metrics != nil {
			attrs := []attribute.KeyValue{AttrDBOperation.String(op), AttrDBTable.String(db.Statement.Table)}
			i.metrics.queryTotal.Inc(ctx, append(attrs, attribute.Bool("error", failed))...)
			if timed {
				i.metrics.queryDuration.RecordDuration(ctx, elapsed, attrs...)
			}
			if slow {
				i.metrics.slowQueryTotal.Inc(ctx, attrs...)
			}
		}
	}
}

func (i *DBInstrumentation) annotateSpan(ctx context.Context, db *gorm.DB, elapsed time.Duration, slow, failed bool) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if failed {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
	if slow {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", i.config.SlowQueryThreshold.Milliseconds()),
		))
	}
}

func (i *DBInstrumentation) observePool(sqlDB *sql.DB) error {
	conns, err := i.meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Connections in the pool by state"), metric.WithUnit("{connection}"))
	if err != nil {
		return fmt.Errorf("failed to create pool gauge: %w", err)
	}
	maxConns, err := i.meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Configured maximum open connections"), metric.WithUnit("{connection}"))
	if err != nil {
		return fmt.Errorf("failed to create pool max gauge: %w", err)
	}
	waits, err := i.meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connection requests that had to wait"), metric.WithUnit("{wait}"))
	if err != nil {
		return fmt.Errorf("failed to create pool wait counter: %w", err)
	}

	i.registration, err = i.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(maxConns, int64(stats.MaxOpenConnections))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, conns, maxConns, waits)
	if err != nil {
		return fmt.Errorf("register pool callback: %w", err)
	}
	return nil
}

func detectOperation(query string) string {
	query = strings.ToUpper(strings.TrimSpace(query))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(query, op) {
			return op
		}
	}
	return "OTHER"
}
