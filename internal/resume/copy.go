package resume

import (
	"time"

	deep "github.com/brunoga/deep/v5"
)

// 文档快照统一用 deep.Clone 复制。time.Time 是不可变值，按值复制即可，
// 不能递归复制其内部的 *time.Location。
func init() {
	deep.RegisterCustomClone(func(t time.Time) (time.Time, error) { return t, nil })
}
