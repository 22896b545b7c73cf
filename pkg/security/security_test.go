package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/api/courses", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS([]string{"http://localhost:3000/"}))

	tests := []struct {
		name   string
		method string
		origin string
		code   int
		allow  string
	}{
		{"allowed origin", http.MethodGet, "http://localhost:3000", http.StatusOK, "http://localhost:3000"},
		{"unknown origin", http.MethodGet, "http://evil.example", http.StatusOK, ""},
		{"preflight", http.MethodOptions, "http://localhost:3000", http.StatusNoContent, "http://localhost:3000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/courses", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.allow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	r := newRouter(CORS([]string{"*"}))
	req := httptest.NewRequest(http.MethodGet, "/api/courses", nil)
	req.Header.Set("Origin", "http://any.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestSecureHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(Secure()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/courses", nil))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRateLimiterRejectsBurst(t *testing.T) {
	r := newRouter(RateLimiter(2, time.Minute))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/courses", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterDisabled(t *testing.T) {
	r := newRouter(RateLimiter(0, time.Minute))
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/courses", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestIPLimiterSweep(t *testing.T) {
	l := newIPLimiter(10, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }

	l.allow("1.1.1.1")
	now = now.Add(2 * time.Minute)
	l.allow("2.2.2.2")
	now = now.Add(2 * time.Minute)

	assert.Equal(t, 1, l.sweep())
	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "2.2.2.2")
}
