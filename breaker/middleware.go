package breaker

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinMiddleware 创建 Gin 熔断中间件
//
// 参数:
//   - gate: 熔断器实例
//   - serviceFunc: 从请求中提取服务标识的函数，如果为 nil，默认使用请求路径
//
// 下游处理结果按响应状态码归类：5xx 记为失败，其余记为成功。
// 请求被熔断拒绝时返回 503。
//
// 使用示例:
//
//	r := gin.New()
//	r.Use(breaker.GinMiddleware(gate, func(c *gin.Context) string {
//	    return "upstream:" + c.Request.URL.Path
//	}))
func GinMiddleware(gate Gate, serviceFunc func(*gin.Context) string) gin.HandlerFunc {
	if serviceFunc == nil {
		serviceFunc = func(c *gin.Context) string {
			return c.Request.URL.Path
		}
	}

	return func(c *gin.Context) {
		serviceID := serviceFunc(c)
		if serviceID == "" {
			c.Next()
			return
		}

		decision, err := gate.Evaluate(c.Request.Context(), serviceID)
		if err != nil && !decision.Allowed {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "circuit breaker unavailable",
			})
			return
		}

		if !decision.Allowed {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":  "circuit breaker open",
				"reason": string(decision.Reason),
			})
			return
		}

		c.Next()

		outcome := OutcomeSuccess
		if c.Writer.Status() >= http.StatusInternalServerError {
			outcome = OutcomeFailure
		}
		_ = gate.Report(c.Request.Context(), serviceID, outcome, decision.ProbeToken)
	}
}
