// Package testutil provides helpers shared by the HTTP and integration tests:
// principals, gin test contexts, polling assertions and event recording.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rentals/backend/internal/domain/rental"
	"github.com/rentals/backend/internal/infrastructure/logger"
	"github.com/rentals/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestContext wraps a Gin test context with HTTP recorder.
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
}

// NewTestContext creates a Gin test context for req. A nil req becomes GET /.
func NewTestContext(t *testing.T, req *http.Request) *TestContext {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if req == nil {
		req = httptest.NewRequest(http.MethodGet, "/", nil)
	}
	c.Request = req

	return &TestContext{Context: c, Recorder: w}
}

// SetRequestID stores id where the middleware chain would have put it.
func (tc *TestContext) SetRequestID(id string) {
	tc.Context.Set(logger.GinRequestIDKey, id)
}

// SetPrincipal authenticates the context as p.
func (tc *TestContext) SetPrincipal(p rental.Principal) {
	tc.Context.Set(middleware.PrincipalKey, p)
	tc.Context.Request = tc.Context.Request.WithContext(middleware.WithPrincipal(tc.Context.Request.Context(), p))
}

// NewTestUUID generates a deterministic UUID from seed.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// Manager returns a manager principal whose id is derived from seed.
func Manager(seed string) rental.Principal {
	return rental.Principal{ID: NewTestUUID("manager-" + seed), Role: rental.RoleManager}
}

// Admin returns an admin principal.
func Admin() rental.Principal {
	return rental.Principal{ID: NewTestUUID("admin"), Role: rental.RoleAdmin}
}

// Tenant returns a tenant principal with the given id.
func Tenant(id uuid.UUID) rental.Principal {
	return rental.Principal{ID: id, Role: rental.RoleTenant}
}

// RequireEventually polls condition until it holds or timeout passes.
func RequireEventually(t *testing.T, condition func() bool, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Fail(t, "Condition not met within timeout", msgAndArgs...)
}

// AssertNever fails if condition becomes true within duration.
func AssertNever(t *testing.T, condition func() bool, duration time.Duration, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if condition() {
			require.Fail(t, "Condition unexpectedly became true", msgAndArgs...)
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}
