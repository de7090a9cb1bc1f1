package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypePDFExport = "resume:pdf_export"
)

// PDFExportPayload 描述导出 PDF 所需的最小信息。
type PDFExportPayload struct {
	ResumeID      uint   `json:"resume_id"`
	UserID        uint   `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewPDFExportTask 构造一个新的简历 PDF 导出任务。
func NewPDFExportTask(resumeID, userID uint, correlationID string, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(PDFExportPayload{
		ResumeID:      resumeID,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypePDFExport, payload, opts...), nil
}

// ParsePDFExportPayload 解析任务载荷并校验必要字段。
func ParsePDFExportPayload(task *asynq.Task) (PDFExportPayload, error) {
	var p PDFExportPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("unmarshal pdf export payload: %w", err)
	}
	if p.ResumeID == 0 || p.UserID == 0 {
		return p, fmt.Errorf("pdf export payload missing ids: %w", asynq.SkipRetry)
	}
	return p, nil
}

// NotifyChannel 返回用户通知的 Redis 频道名：worker 发布导出结果，API 的 WebSocket 订阅转发。
func NotifyChannel(userID uint) string {
	return fmt.Sprintf("user_notify:%d", userID)
}
