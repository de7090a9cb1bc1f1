package api

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// 登录限流、登录锁定与 PDF 导出配额使用的 Redis 键。计数键按固定窗口划分，窗口标识写在键名里。

func loginRateKey(ip, email string, now time.Time) string {
	return "rate:login:" + ip + ":" + email + ":" + now.UTC().Format("2006010215")
}

func loginFailKey(email string) string {
	return "lock:login:fail:" + email
}

func loginLockKey(email string) string {
	return "lock:login:" + email
}

func pdfQuotaKey(userID uint, now time.Time) string {
	return "rate:pdf:" + strconv.FormatUint(uint64(userID), 10) + ":" + now.UTC().Format("20060102")
}

type windowCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// hitWindow 在固定窗口计数器上记一次并返回窗口内的累计次数，窗口的第一次命中负责设置过期时间。
// 设置过期失败时同样返回错误，否则该键会永久存在，配额再也不会重置。
func hitWindow(ctx context.Context, client windowCounter, key string, window time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return count, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return count, nil
}
