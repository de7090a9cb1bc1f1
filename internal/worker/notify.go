package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/tasks"
)

const (
	NotifyStatusCompleted = "completed"
	NotifyStatusError     = "error"
)

// 统一的 WebSocket 消息协议（通过 Redis Pub/Sub 转发给前端）。
// 注意：这里的字段名与前端解析保持一致。
type PDFGenerationNotifyMessage struct {
	Status        string   `json:"status"`
	ResumeID      uint     `json:"resume_id"`
	CorrelationID string   `json:"correlation_id"`
	ErrorCode     int      `json:"error_code"`
	ErrorMessage  string   `json:"error_message"`
	MissingKeys   []string `json:"missing_keys,omitempty"`
}

// Publisher 是发布通知所需的 Redis 能力。
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

func publishNotify(ctx context.Context, pub Publisher, userID uint, notify PDFGenerationNotifyMessage) error {
	if pub == nil {
		return nil
	}
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := tasks.NotifyChannel(userID)
	if err := pub.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
