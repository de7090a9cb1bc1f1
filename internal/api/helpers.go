package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/api/middleware"
)

var errInvalidID = errors.New("invalid id")

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	default:
		return 0, false
	}
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}

func loggerFrom(c *gin.Context) *slog.Logger {
	return middleware.LoggerFromContext(c)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// slugify 把标题转成小写连字符形式，非字母数字字符折叠为单个 '-'。
func slugify(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if r > unicode.MaxASCII {
				continue
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if len(out) > 60 {
		out = strings.TrimRight(out[:60], "-")
	}
	if out == "" {
		out = "resume"
	}
	return out
}

// newResumeSlug 生成 "<标题>-<6 位随机十六进制>" 形式的 slug。
func newResumeSlug(title string) (string, error) {
	suffix, err := randomHex(3)
	if err != nil {
		return "", err
	}
	return slugify(title) + "-" + suffix, nil
}
