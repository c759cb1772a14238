package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// TlsHandler 把 HTTP 请求重定向到 HTTPS
func TlsHandler(host string, port int) gin.HandlerFunc {
	// 在返回函数之前初始化，避免每次请求都重复创建对象
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect: true,
		SSLHost:     host + ":" + strconv.Itoa(port),
	})

	return func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			// 不要在中间件里用 Fatal，记录日志并终止当前请求
			zap.L().Warn("TLS redirection", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Abort()
			return
		}
		// 重定向时 secure 已写出响应
		if status := c.Writer.Status(); status > 300 && status < 399 {
			c.Abort()
			return
		}
		c.Next()
	}
}
