package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))

	// 30 秒補回一個令牌
	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.POST("/echo", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newEngine(RateLimit(NewRateLimiter(1, time.Hour)))

	assert.Equal(t, http.StatusOK, post(r, "a").Code)
	w := post(r, "b")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
}

func TestDeduplication(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	defer d.Stop()
	r := newEngine(d.Middleware())

	assert.Equal(t, http.StatusOK, post(r, `{"plan_text":"x"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, post(r, `{"plan_text":"x"}`).Code)
	assert.Equal(t, http.StatusOK, post(r, `{"plan_text":"y"}`).Code)

	now := time.Now().Add(2 * time.Minute)
	d.now = func() time.Time { return now }
	assert.Equal(t, http.StatusOK, post(r, `{"plan_text":"x"}`).Code)
}

func TestBodySizeLimit(t *testing.T) {
	r := newEngine(BodySizeLimit(4))

	assert.Equal(t, http.StatusOK, post(r, "abc").Code)
	w := post(r, "abcdefgh")
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), ErrCodeBodyTooLarge)
}
