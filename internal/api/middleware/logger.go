package middleware

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const requestLoggerKey = "requestLogger"

// RequestLogger 为每个请求派生带 correlation_id 的 logger，处理完成后写一条访问日志。
// 鉴权通过的请求附带 user_id，简历路由附带 resume_id；5xx 记为 Error，4xx 记为 Warn。
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		reqLogger := logger.With(
			slog.String("correlation_id", GetCorrelationID(c)),
			slog.String("method", c.Request.Method),
			slog.String("route", route),
		)
		c.Set(requestLoggerKey, reqLogger)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Int("bytes", max(c.Writer.Size(), 0)),
			slog.Duration("latency", time.Since(start)),
		}
		if userID, ok := c.Get(UserIDKey); ok {
			attrs = append(attrs, slog.Any("user_id", userID))
		}
		if id := c.Param("id"); id != "" && strings.HasPrefix(route, "/v1/resumes/") {
			attrs = append(attrs, slog.String("resume_id", id))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			reqLogger.Error("request failed", attrs...)
		case status >= 400:
			reqLogger.Warn("request rejected", attrs...)
		default:
			reqLogger.Info("request completed", attrs...)
		}
	}
}

// LoggerFromContext 返回 RequestLogger 注入的 logger，未挂载时退回 slog.Default。
func LoggerFromContext(c *gin.Context) *slog.Logger {
	if value, ok := c.Get(requestLoggerKey); ok {
		if logger, ok := value.(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}
