package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/crm-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type stubAuthenticator struct {
	tokens map[string]int64
	err    error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if id, ok := s.tokens[token]; ok {
		return id, nil
	}
	return 0, auth.ErrInvalidToken
}

func TestAuthenticate(t *testing.T) {
	m := NewAuthMiddleware(stubAuthenticator{tokens: map[string]int64{"good": 42}})
	r := gin.New()
	r.GET("/me", m.Authenticate(), func(c *gin.Context) {
		id, ok := UserID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"valid", "Bearer good", http.StatusOK},
		{"lowercase scheme", "bearer good", http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer  ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := perform(r, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.JSONEq(t, `{"id":42}`, w.Body.String())
			}
		})
	}
}

func TestAuthenticateBackendFailure(t *testing.T) {
	m := NewAuthMiddleware(stubAuthenticator{err: errors.New("db down")})
	r := gin.New()
	r.GET("/me", m.Authenticate(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	assert.Equal(t, http.StatusInternalServerError, perform(r, req).Code)
}

func TestCORS(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowOrigins = []string{"https://crm.example.com"}
	r := gin.New()
	r.Use(CORS(config))
	r.GET("/api/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/x", nil)
	req.Header.Set("Origin", "https://crm.example.com")
	w := perform(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://crm.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.Equal(t, http.StatusForbidden, perform(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = perform(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardWithCredentialsEchoesOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS(DefaultCORSConfig()))
	r.GET("/api/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := perform(r, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: rate.Every(time.Hour), Burst: 2})
	r := gin.New()
	r.GET("/x", rl.RateLimit(), func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		return perform(r, req)
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, request("10.0.0.1").Code)
	w := request("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// buckets are per client
	assert.Equal(t, http.StatusOK, request("10.0.0.2").Code)
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(TimeoutConfig{Duration: 20 * time.Millisecond}))
	r.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)

	w = perform(r, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(SizeLimit(SizeLimitConfig{MaxBodySize: 8}))
	r.POST("/x", func(c *gin.Context) {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := perform(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":"too long"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := perform(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := perform(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(HeaderXRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w = perform(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(DefaultSecurityConfig()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := perform(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestTrailingSlash(t *testing.T) {
	r := gin.New()
	r.RedirectTrailingSlash = false
	r.GET("/api/notifications/", func(c *gin.Context) { c.String(http.StatusOK, c.Request.URL.Path) })
	r.GET("/api/export.csv", func(c *gin.Context) { c.String(http.StatusOK, "csv") })
	r.GET("/health/live", func(c *gin.Context) { c.String(http.StatusOK, "live") })
	h := TrailingSlash("/api/", r)

	tests := []struct {
		path string
		code int
		body string
	}{
		{"/api/notifications", http.StatusOK, "/api/notifications/"},
		{"/api/notifications/", http.StatusOK, "/api/notifications/"},
		{"/api/export.csv", http.StatusOK, "csv"},
		{"/health/live", http.StatusOK, "live"},
		{"/health/live/", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := perform(h, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}
