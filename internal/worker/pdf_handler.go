package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/tasks"
)

const printDataTimeout = 15 * time.Second

// ObjectUploader 是导出任务用到的对象存储能力，由 storage.Client 实现。
type ObjectUploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// HTMLRenderer 把 HTML 转换为 PDF，由 pdf.Generator 实现。
type HTMLRenderer interface {
	Render(ctx context.Context, htmlContent string) ([]byte, error)
}

// PDFTaskHandler 负责消费 PDF 导出任务。
type PDFTaskHandler struct {
	db                 *gorm.DB
	storage            ObjectUploader
	publisher          Publisher
	renderer           HTMLRenderer
	logger             *slog.Logger
	httpClient         *http.Client
	internalSecret     string
	internalAPIBaseURL string
	finalAttempt       func(ctx context.Context) bool
}

// NewPDFTaskHandler 创建任务处理器。publisher 为 nil 时不发送通知。
func NewPDFTaskHandler(
	db *gorm.DB,
	storageClient ObjectUploader,
	publisher Publisher,
	renderer HTMLRenderer,
	logger *slog.Logger,
	internalSecret string,
	internalAPIBaseURL string,
) *PDFTaskHandler {
	return &PDFTaskHandler{
		db:                 db,
		storage:            storageClient,
		publisher:          publisher,
		renderer:           renderer,
		logger:             logger,
		httpClient:         &http.Client{Timeout: printDataTimeout},
		internalSecret:     internalSecret,
		internalAPIBaseURL: strings.TrimRight(strings.TrimSpace(internalAPIBaseURL), "/"),
		finalAttempt:       isFinalAsynqAttempt,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *PDFTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	payload, err := tasks.ParsePDFExportPayload(t)
	if err != nil {
		log.Error("parse task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("resume_id", uint64(payload.ResumeID)),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("pdf export task started")

	var row database.Resume
	if err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", payload.ResumeID, payload.UserID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil {
			return
		}
		if !errors.Is(retErr, asynq.SkipRetry) && !h.finalAttempt(ctx) {
			return
		}

		notify := PDFGenerationNotifyMessage{
			Status:        NotifyStatusError,
			ResumeID:      row.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := publishNotify(ctx, h.publisher, row.UserID, notify); err != nil {
			log.Error("publish pdf error notification failed", slog.Any("error", err))
		}
	}()

	data, err := fetchPrintData(ctx, h.httpClient, h.internalAPIBaseURL, row.ID, h.internalSecret, payload.CorrelationID)
	if err != nil {
		var statusErr *printDataStatusError
		if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotFound {
			log.Warn("print data gone, skipping task", slog.Any("error", err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		log.Error("fetch print data failed", slog.Any("error", err))
		return err
	}
	missingKeys, resourceMissing := extractResourceMissingWarning(data)

	htmlContent, err := renderResumeHTML(data)
	if err != nil {
		log.Error("render resume html failed", slog.Any("error", err))
		return err
	}

	pdfBytes, err := h.renderer.Render(ctx, htmlContent)
	if err != nil {
		log.Error("convert html to pdf failed", slog.Any("error", err))
		return err
	}

	objectName := storage.PDFObjectKey(row.UserID, row.ID)
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	previousKey := row.PdfObjectKey
	if err := h.db.WithContext(ctx).Model(&row).Update("pdf_object_key", objectName).Error; err != nil {
		log.Error("update resume failed", slog.Any("error", err))
		return err
	}
	if previousKey != "" && previousKey != objectName {
		if err := h.storage.DeleteObject(ctx, previousKey); err != nil {
			log.Warn("delete previous export failed", slog.String("object_key", previousKey), slog.Any("error", err))
		}
	}

	notify := PDFGenerationNotifyMessage{
		Status:        NotifyStatusCompleted,
		ResumeID:      row.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if resourceMissing {
		notify.ErrorCode = errcode.ResourceMissing
		notify.ErrorMessage = "template or theme missing, rendered with default style"
		notify.MissingKeys = missingKeys
		log.Warn("pdf generated with missing design resources", slog.Any("missing_keys", missingKeys))
	}
	if err := publishNotify(ctx, h.publisher, row.UserID, notify); err != nil {
		// PDF 已经生成，通知失败不再重试整个任务。
		log.Error("publish redis notification failed", slog.Any("error", err))
	}

	log.Info("pdf export task completed", slog.String("object_key", objectName), slog.Int("bytes", len(pdfBytes)))
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
