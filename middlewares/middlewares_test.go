package middlewares

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"civicpulse-be/models"
	"civicpulse-be/services"
	authUtils "civicpulse-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

type usersByID map[primitive.ObjectID]*models.User

func (u usersByID) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, services.ErrNotFound
}

func init() {
	gin.SetMode(gin.TestMode)
}

func authRouter(users usersByID) *gin.Engine {
	auth := NewAuth(testSecret, users)
	r := gin.New()
	whoami := func(c *gin.Context) {
		if v := CurrentViewer(c); v != nil {
			c.String(http.StatusOK, "%s:%s", v.ID.Hex(), v.Role)
			return
		}
		c.String(http.StatusOK, "public")
	}
	r.GET("/required", auth.Required(), whoami)
	r.GET("/optional", auth.Optional(), whoami)
	r.GET("/admin", auth.Required(), RequireRole(models.RoleAdmin, models.RoleWorker), whoami)
	return r
}

func tokenFor(t *testing.T, id primitive.ObjectID) string {
	t.Helper()
	token, err := authUtils.GenerateToken(testSecret, id.Hex())
	require.NoError(t, err)
	return token
}

func TestAuthRequired(t *testing.T) {
	citizen := &models.User{ID: primitive.NewObjectID(), Role: models.RoleCitizen}
	r := authRouter(usersByID{citizen.ID: citizen})

	tests := []struct {
		name   string
		setup  func(*http.Request)
		status int
		body   string
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"bearer header", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, citizen.ID))
		}, http.StatusOK, citizen.ID.Hex() + ":citizen"},
		{"cookie", func(req *http.Request) {
			req.AddCookie(&http.Cookie{Name: authUtils.CookieName, Value: tokenFor(t, citizen.ID)})
		}, http.StatusOK, citizen.ID.Hex() + ":citizen"},
		{"garbage token", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer nope")
		}, http.StatusUnauthorized, ""},
		{"deleted user", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, primitive.NewObjectID()))
		}, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/required", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestAuthOptional(t *testing.T) {
	admin := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	r := authRouter(usersByID{admin.ID: admin})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/optional", nil))
	assert.Equal(t, "public", w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "Bearer broken")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "public", w.Body.String(), "a bad token degrades to a public visit")

	req = httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, admin.ID))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, admin.ID.Hex()+":admin", w.Body.String())
}

func TestRequireRole(t *testing.T) {
	citizen := &models.User{ID: primitive.NewObjectID(), Role: models.RoleCitizen}
	worker := &models.User{ID: primitive.NewObjectID(), Role: models.RoleWorker}
	r := authRouter(usersByID{citizen.ID: citizen, worker.ID: worker})

	for _, tc := range []struct {
		user   *models.User
		status int
	}{{citizen, http.StatusForbidden}, {worker, http.StatusOK}} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, tc.user.ID))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, string(tc.user.Role))
	}
}

type stubLimiter struct {
	keys  []string
	allow bool
	err   error
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	s.keys = append(s.keys, key)
	return s.allow, 30 * time.Second, s.err
}

func TestRateLimiter(t *testing.T) {
	limiter := &stubLimiter{}
	r := gin.New()
	r.GET("/", RateLimiter(limiter), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, []string{"ip:203.0.113.7"}, limiter.keys)

	limiter.err = errors.New("redis down")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code, "limiter failures let traffic through")
}

func TestLocalLimiter(t *testing.T) {
	l := NewLocalLimiter(3, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, retry, err := l.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 20*time.Second, retry)

	ok, _, _ = l.Allow(ctx, "b")
	assert.True(t, ok, "keys are independent")

	now = now.Add(21 * time.Second)
	ok, _, _ = l.Allow(ctx, "a")
	assert.True(t, ok, "a token refills after a third of the window")
	ok, _, _ = l.Allow(ctx, "a")
	assert.False(t, ok)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

type brokenFinder struct{}

func (brokenFinder) FindByID(context.Context, primitive.ObjectID) (*models.User, error) {
	return nil, errors.New("connection reset")
}

func TestAuthOptionalLogsLookupFailures(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	auth := NewAuth(testSecret, brokenFinder{})
	r := gin.New()
	r.GET("/optional", auth.Optional(), func(c *gin.Context) {
		if CurrentViewer(c) != nil {
			c.String(http.StatusOK, "user")
			return
		}
		c.String(http.StatusOK, "public")
	})

	req := httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, primitive.NewObjectID()))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "public", w.Body.String())
	assert.Contains(t, logs.String(), "connection reset")

	logs.Reset()
	req = httptest.NewRequest(http.MethodGet, "/optional", nil)
	req.Header.Set("Authorization", "Bearer broken")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "public", w.Body.String())
	assert.Empty(t, logs.String(), "a bad token is not worth a log line")
}
