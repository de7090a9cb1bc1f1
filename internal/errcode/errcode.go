package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复错误（资源缺失、保存被拒绝），编辑器本地状态保持不变
// - 5xxx：系统错误（需要中断流程）
const (
	OK              = 0
	ResourceMissing = 4004
	SaveRejected    = 4009
	SystemError     = 5000
)

// Message 返回错误码的默认描述。
func Message(code int) string {
	switch code {
	case OK:
		return "ok"
	case ResourceMissing:
		return "resource missing"
	case SaveRejected:
		return "save rejected"
	default:
		return "internal error"
	}
}
