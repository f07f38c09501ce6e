package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	apprental "github.com/rentals/backend/internal/application/rental"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/infrastructure/auth"
	"github.com/rentals/backend/internal/infrastructure/config"
	"github.com/rentals/backend/internal/infrastructure/telemetry"
	"github.com/rentals/backend/internal/interfaces/http/dto"
	"github.com/rentals/backend/internal/interfaces/http/middleware"
	"github.com/rentals/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubApplications struct {
	update func(context.Context, apprental.UpdateStatusCommand) (*apprental.ApplicationResult, error)
}

func (s *stubApplications) UpdateStatus(ctx context.Context, cmd apprental.UpdateStatusCommand) (*apprental.ApplicationResult, error) {
	return s.update(ctx, cmd)
}

func (s *stubApplications) GetApplication(_ context.Context, id uuid.UUID, _ rental.Principal) (*apprental.ApplicationResult, error) {
	app := &rental.Application{Status: rental.ApplicationStatusPending, AppliedAt: time.Now()}
	app.ID = id
	return &apprental.ApplicationResult{Application: app, Property: &rental.Property{Title: "Loft"}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: "router-test-secret-at-least-32-chars", Issuer: "rental-idp"},
		HTTP: config.HTTPConfig{
			MaxBodySize:      1024,
			RequestTimeout:   5 * time.Second,
			CORSAllowOrigins: []string{"http://localhost:3000"},
		},
	}
}

type testEnv struct {
	verifier  *auth.JWTVerifier
	collector *telemetry.PrometheusCollector
	calls     int
}

func newTestEngine(t *testing.T, dbErr error) (*testEnv, http.Handler) {
	t.Helper()
	cfg := testConfig()
	env := &testEnv{
		verifier:  auth.NewJWTVerifier(cfg.JWT),
		collector: telemetry.NewPrometheusCollector(),
	}
	svc := &stubApplications{update: func(_ context.Context, cmd apprental.UpdateStatusCommand) (*apprental.ApplicationResult, error) {
		env.calls++
		if cmd.RequestedStatus == "explode" {
			panic("boom")
		}
		status, err := rental.ParseApplicationStatus(cmd.RequestedStatus)
		if err != nil {
			return nil, err
		}
		app := &rental.Application{Status: status, AppliedAt: time.Now()}
		app.ID = cmd.ApplicationID
		return &apprental.ApplicationResult{Application: app, Property: &rental.Property{Title: "Loft"}}, nil
	}}

	engine := NewEngine(Dependencies{
		Config:         cfg,
		Applications:   svc,
		Verifier:       env.verifier,
		DatabasePing:   func(context.Context) error { return dbErr },
		MetricsHandler: env.collector.Handler(),
	})
	return env, engine
}

func (e *testEnv) bearer(t *testing.T, p rental.Principal) string {
	t.Helper()
	token, err := e.verifier.Sign(p, time.Hour)
	require.NoError(t, err)
	return middleware.BearerPrefix + token
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestEngine_Health(t *testing.T) {
	_, engine := newTestEngine(t, nil)

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestEngine_HealthDatabaseDown(t *testing.T) {
	_, engine := newTestEngine(t, errors.New("connection refused"))

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEngine_MetricsEndpoint(t *testing.T) {
	env, engine := newTestEngine(t, nil)
	require.NoError(t, env.collector.RecordTransition(context.Background(), rental.TransitionRecord{
		ApplicationID:  uuid.New(),
		PropertyID:     uuid.New(),
		PreviousStatus: rental.ApplicationStatusPending,
		NewStatus:      rental.ApplicationStatusApproved,
		LeaseCreated:   true,
	}))

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rental_application_status_transitions_total")
}

func TestEngine_APIRequiresToken(t *testing.T) {
	env, engine := newTestEngine(t, nil)
	path := "/api/v1/applications/" + uuid.NewString() + "/status"

	w := serve(engine, httptest.NewRequest(http.MethodPatch, path, strings.NewReader(`{"status":"Approved"}`)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeUnauthorized)
	assert.Zero(t, env.calls)
}

func TestEngine_UpdateStatus(t *testing.T) {
	env, engine := newTestEngine(t, nil)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/applications/"+id.String()+"/status", testutil.ToJSONReader(t, dto.UpdateStatusRequest{Status: "approved"}))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.AuthHeaderKey, env.bearer(t, testutil.Manager("router")))
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w := serve(engine, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, 1, env.calls)

	testutil.AssertSuccessResponse(t, w)
	body := testutil.JSONResponseAs[struct {
		Data dto.ApplicationEnvelope `json:"data"`
	}](t, w)
	assert.Equal(t, id.String(), body.Data.Application.ID)
	assert.Equal(t, "APPROVED", body.Data.Application.Status)
}

func TestEngine_GetApplication(t *testing.T) {
	env, engine := newTestEngine(t, nil)
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/applications/"+id.String(), nil)
	req.Header.Set(middleware.AuthHeaderKey, env.bearer(t, testutil.Tenant(uuid.New())))
	w := serve(engine, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEngine_BodyLimit(t *testing.T) {
	env, engine := newTestEngine(t, nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/applications/"+uuid.NewString()+"/status",
		strings.NewReader(`{"status":"`+strings.Repeat("a", 4096)+`"}`))
	req.Header.Set(middleware.AuthHeaderKey, env.bearer(t, testutil.Manager("router")))
	w := serve(engine, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, env.calls)
}

func TestEngine_PanicIsRecovered(t *testing.T) {
	env, engine := newTestEngine(t, nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/applications/"+uuid.NewString()+"/status", strings.NewReader(`{"status":"explode"}`))
	req.Header.Set(middleware.AuthHeaderKey, env.bearer(t, testutil.Admin()))
	w := serve(engine, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeInternal)
}

func TestEngine_CORSPreflight(t *testing.T) {
	_, engine := newTestEngine(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/applications/"+uuid.NewString()+"/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := serve(engine, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEngine_UnknownRoute(t *testing.T) {
	_, engine := newTestEngine(t, nil)

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	testutil.AssertErrorResponse(t, w, dto.ErrCodeNotFound)
}
