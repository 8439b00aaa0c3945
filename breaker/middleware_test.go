package breaker

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, gate Gate, upstreamStatus *int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(GinMiddleware(gate, nil))
	r.GET("/api/data", func(c *gin.Context) {
		c.JSON(*upstreamStatus, gin.H{"status": *upstreamStatus})
	})
	return r
}

func doRequest(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGinMiddleware(t *testing.T) {
	t.Run("下游正常时请求透传", func(t *testing.T) {
		gate, _ := newTestGate(t, newMemoryStore(), nil)
		status := http.StatusOK
		r := newTestRouter(t, gate, &status)

		w := doRequest(r, "/api/data")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("连续 5xx 触发熔断后返回 503", func(t *testing.T) {
		gate, _ := newTestGate(t, newMemoryStore(), nil)
		status := http.StatusBadGateway
		r := newTestRouter(t, gate, &status)

		for i := 0; i < 3; i++ {
			w := doRequest(r, "/api/data")
			assert.Equal(t, http.StatusBadGateway, w.Code, "熔断前的失败原样返回")
		}

		w := doRequest(r, "/api/data")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "circuit breaker open")
	})

	t.Run("4xx 不计入失败", func(t *testing.T) {
		gate, _ := newTestGate(t, newMemoryStore(), nil)
		status := http.StatusNotFound
		r := newTestRouter(t, gate, &status)

		for i := 0; i < 10; i++ {
			w := doRequest(r, "/api/data")
			assert.Equal(t, http.StatusNotFound, w.Code)
		}
	})

	t.Run("探测成功后恢复放行", func(t *testing.T) {
		gate, clock := newTestGate(t, newMemoryStore(), nil)
		status := http.StatusInternalServerError
		r := newTestRouter(t, gate, &status)

		for i := 0; i < 3; i++ {
			doRequest(r, "/api/data")
		}
		require.Equal(t, http.StatusServiceUnavailable, doRequest(r, "/api/data").Code)

		// 下游恢复，等过恢复超时后的探测请求带回成功
		status = http.StatusOK
		clock.Advance(11 * time.Second)

		assert.Equal(t, http.StatusOK, doRequest(r, "/api/data").Code)
		assert.Equal(t, http.StatusOK, doRequest(r, "/api/data").Code)
	})

	t.Run("自定义服务标识函数", func(t *testing.T) {
		gate, _ := newTestGate(t, newMemoryStore(), nil)
		gin.SetMode(gin.TestMode)

		r := gin.New()
		r.Use(GinMiddleware(gate, func(c *gin.Context) string {
			return "upstream:" + c.Request.URL.Path
		}))
		r.GET("/a", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
		r.GET("/b", func(c *gin.Context) { c.Status(http.StatusOK) })

		for i := 0; i < 3; i++ {
			doRequest(r, "/a")
		}
		assert.Equal(t, http.StatusServiceUnavailable, doRequest(r, "/a").Code)
		assert.Equal(t, http.StatusOK, doRequest(r, "/b").Code, "不同服务独立熔断")
	})
}
