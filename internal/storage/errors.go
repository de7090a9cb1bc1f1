package storage

import (
	"errors"
	"strings"

	"github.com/minio/minio-go/v7"
)

// IsNoSuchKey 判断错误是否表示对象不存在。
func IsNoSuchKey(err error) bool {
	return matchError(err, []string{"nosuchkey", "notfound"},
		"nosuchkey", "specified key does not exist", "not found")
}

// IsNoSuchBucket 判断错误是否表示 Bucket 不存在。
func IsNoSuchBucket(err error) bool {
	return matchError(err, []string{"nosuchbucket"},
		"nosuchbucket", "specified bucket does not exist")
}

// matchError 先比对 S3 错误码；网关或代理可能只留下错误文本，再按子串兜底。
func matchError(err error, codes []string, fragments ...string) bool {
	if err == nil {
		return false
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		code := strings.ToLower(strings.TrimSpace(resp.Code))
		for _, c := range codes {
			if code == c {
				return true
			}
		}
	}
	lower := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
