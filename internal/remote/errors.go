package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("remote: not found")
	ErrUnauthorized = errors.New("remote: unauthorized")
	ErrConflict     = errors.New("remote: conflict")
)

// StatusError 表示服务端返回了非 2xx 响应。
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote status %d", e.Status)
	}
	return fmt.Sprintf("remote status %d: %s", e.Status, e.Message)
}

// Is 让 errors.Is 可以按状态码匹配哨兵错误。
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}
