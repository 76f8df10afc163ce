package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/snapfeed/snapfeed/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestRateLimit_DisabledPassesThrough(t *testing.T) {
	t.Parallel()

	cfg := config.RateLimitConfig{Enabled: false, Requests: 1, Window: time.Minute}

	router := gin.New()
	router.Use(NewRateLimit(nil, cfg, nil))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.1.2.3:5555"

	assert.Equal(t, "ratelimit:ip:10.1.2.3", clientKey(c))

	c.Set(userIDKey, uint(42))
	assert.Equal(t, "ratelimit:user:42", clientKey(c))
}
