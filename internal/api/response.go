package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)                { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string)      { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)       { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)        { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)        { Error(c, http.StatusConflict, msg) }
func TooManyRequests(c *gin.Context, msg string) { Error(c, http.StatusTooManyRequests, msg) }
func Internal(c *gin.Context, msg string)        { Error(c, http.StatusInternalServerError, msg) }

// lookupFailed 把查询错误翻译为 400/404/500。
func lookupFailed(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, errInvalidID):
		BadRequest(c, "invalid "+what+" id")
	case errors.Is(err, gorm.ErrRecordNotFound):
		NotFound(c, what+" not found")
	default:
		loggerFrom(c).Error("lookup failed", "what", what, "error", err)
		Internal(c, "failed to query "+what)
	}
}
