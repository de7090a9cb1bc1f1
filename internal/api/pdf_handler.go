package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/tasks"
)

const (
	pdfExportMaxRetry = 5
	pdfLinkTTL        = 5 * time.Minute
)

// TaskEnqueuer 是 asynq.Client 的最小接口，便于测试替换。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PDFHandler 负责导出任务入队与下载链接。
type PDFHandler struct {
	db         *gorm.DB
	queue      TaskEnqueuer
	storage    ObjectStore
	redis      redis.UniversalClient
	dailyLimit int
	now        func() time.Time
}

func NewPDFHandler(db *gorm.DB, queue TaskEnqueuer, storageClient ObjectStore, redisClient redis.UniversalClient, dailyLimit int) *PDFHandler {
	return &PDFHandler{
		db:         db,
		queue:      queue,
		storage:    storageClient,
		redis:      redisClient,
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

// ExportPDF 将 PDF 导出任务入队并立即返回 202。
func (h *PDFHandler) ExportPDF(c *gin.Context) {
	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	logger := loggerFrom(c).With(slog.Uint64("resume_id", uint64(owner.ID)))

	if h.redis != nil && h.dailyLimit > 0 {
		count, err := hitWindow(ctx, h.redis, pdfQuotaKey(owner.UserID, h.now()), 24*time.Hour)
		if err != nil {
			logger.Warn("pdf rate counter failed", slog.Any("error", err))
		} else if count > int64(h.dailyLimit) {
			TooManyRequests(c, "daily export limit reached")
			return
		}
	}

	task, err := tasks.NewPDFExportTask(owner.ID, owner.UserID, middleware.GetCorrelationID(c))
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.queue.EnqueueContext(ctx, task, asynq.MaxRetry(pdfExportMaxRetry))
	if err != nil {
		logger.Error("enqueue pdf export failed", slog.Any("error", err))
		Internal(c, "failed to enqueue pdf export")
		return
	}

	logger.Info("pdf export enqueued", slog.String("task_id", info.ID))
	c.JSON(http.StatusAccepted, gin.H{
		"message": "PDF export request accepted",
		"task_id": info.ID,
	})
}

// PDFLink 生成最近一次导出文件的预签名下载链接。
func (h *PDFHandler) PDFLink(c *gin.Context) {
	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}

	if owner.PdfObjectKey == "" {
		Conflict(c, "pdf not ready")
		return
	}

	params := map[string]string{
		"response-content-disposition": `attachment; filename="` + storage.DownloadFilename(owner.Title) + `"`,
	}
	signedURL, err := h.storage.GeneratePresignedURLWithParams(c.Request.Context(), owner.PdfObjectKey, pdfLinkTTL, params)
	if err != nil {
		loggerFrom(c).Error("presign pdf failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        signedURL,
		"expires_in": int(pdfLinkTTL.Seconds()),
	})
}
