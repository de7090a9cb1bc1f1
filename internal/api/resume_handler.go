package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ResumeHandler 负责简历本身的增删改查。
type ResumeHandler struct {
	db         *gorm.DB
	storage    ObjectStore
	maxResumes int
}

// NewResumeHandler 构造 ResumeHandler。storage 可以为 nil。
func NewResumeHandler(db *gorm.DB, storageClient ObjectStore, maxResumes int) *ResumeHandler {
	return &ResumeHandler{
		db:         db,
		storage:    storageClient,
		maxResumes: maxResumes,
	}
}

type createResumeRequest struct {
	Title      string `json:"title" binding:"required,max=255"`
	TemplateID *uint  `json:"template_id"`
	ThemeID    *uint  `json:"theme_id"`
}

type resumeSummary struct {
	ID        uint          `json:"id"`
	Title     string        `json:"title"`
	Slug      string        `json:"slug"`
	Status    resume.Status `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type resumeListResponse struct {
	Items []resumeSummary `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ListResumes 分页列出当前用户的简历，按更新时间倒序。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	ctx := c.Request.Context()
	scope := h.db.WithContext(ctx).Model(&database.Resume{}).Where("user_id = ?", userID)

	var total int64
	if err := scope.Count(&total).Error; err != nil {
		Internal(c, "failed to count resumes")
		return
	}

	var rows []database.Resume
	if err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error; err != nil {
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]resumeSummary, 0, len(rows))
	for _, r := range rows {
		items = append(items, resumeSummary{
			ID:        r.ID,
			Title:     r.Title,
			Slug:      r.Slug,
			Status:    resume.Status(r.Status),
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, resumeListResponse{Items: items, Total: total, Page: page, Limit: limit})
}

// CreateResume 新建一份草稿简历，并按模板初始化设计配置。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	var req createResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		BadRequest(c, "title is required")
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	logger := loggerFrom(c).With(slog.Uint64("user_id", uint64(userID)))

	if h.maxResumes > 0 {
		var count int64
		if err := h.db.WithContext(ctx).Model(&database.Resume{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			Internal(c, "failed to count resumes")
			return
		}
		if count >= int64(h.maxResumes) {
			Forbidden(c, "resume limit reached")
			return
		}
	}

	tpl, err := resolveTemplate(ctx, h.db, req.TemplateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			BadRequest(c, "unknown template")
			return
		}
		logger.Error("resolve template failed", slog.Any("error", err))
		Internal(c, "failed to resolve template")
		return
	}
	if req.ThemeID != nil {
		if err := checkThemeBelongs(ctx, h.db, tpl.ID, *req.ThemeID); err != nil {
			themeLookupFailed(c, err)
			return
		}
	}

	slug, err := newResumeSlug(title)
	if err != nil {
		Internal(c, "failed to generate slug")
		return
	}

	row := database.Resume{
		Title:  title,
		Slug:   slug,
		Status: string(resume.StatusDraft),
		UserID: userID,
		Design: &database.ResumeDesign{
			TemplateID:      tpl.ID,
			ThemeID:         req.ThemeID,
			CustomOverrides: []byte(`{}`),
		},
	}
	if err := h.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.Error("create resume failed", slog.Any("error", err))
		Internal(c, "failed to create resume")
		return
	}

	logger.Info("resume created", slog.Uint64("resume_id", uint64(row.ID)))
	h.respondTree(c, http.StatusCreated, row.ID)
}

// GetResume 返回完整的简历文档树。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	row, err := getResumeForUser(c.Request.Context(), h.db, c.Param("id"), userID)
	if err != nil {
		lookupFailed(c, err, "resume")
		return
	}

	h.respondTree(c, http.StatusOK, row.ID)
}

// UpdateResume 局部更新标题与状态，标题变化时重新生成 slug。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	var patch resume.ResumePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		BadRequest(c, "invalid status")
		return
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			BadRequest(c, "title must not be empty")
			return
		}
		patch.Title = &title
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	row, err := getResumeForUser(ctx, h.db, c.Param("id"), userID)
	if err != nil {
		lookupFailed(c, err, "resume")
		return
	}

	updates := map[string]any{}
	if patch.Title != nil && *patch.Title != row.Title {
		slug, err := newResumeSlug(*patch.Title)
		if err != nil {
			Internal(c, "failed to generate slug")
			return
		}
		updates["title"] = *patch.Title
		updates["slug"] = slug
	}
	if patch.Status != nil && string(*patch.Status) != row.Status {
		updates["status"] = string(*patch.Status)
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(row).Updates(updates).Error; err != nil {
			loggerFrom(c).Error("update resume failed", slog.Any("error", err))
			Internal(c, "failed to update resume")
			return
		}
	}

	h.respondTree(c, http.StatusOK, row.ID)
}

// DeleteResume 删除简历及其导出文件。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	row, err := getResumeForUser(ctx, h.db, c.Param("id"), userID)
	if err != nil {
		lookupFailed(c, err, "resume")
		return
	}

	if err := h.db.WithContext(ctx).Delete(&database.Resume{}, row.ID).Error; err != nil {
		Internal(c, "failed to delete resume")
		return
	}

	if h.storage != nil {
		if err := h.storage.DeletePrefix(ctx, storage.ResumePrefix(userID, row.ID)); err != nil {
			loggerFrom(c).Warn("delete resume exports failed", slog.Any("error", err))
		}
	}

	c.Status(http.StatusNoContent)
}

func (h *ResumeHandler) respondTree(c *gin.Context, status int, resumeID uint) {
	tree, err := loadResumeTree(c.Request.Context(), h.db, resumeID)
	if err != nil {
		lookupFailed(c, err, "resume")
		return
	}
	c.JSON(status, tree.ToDomain())
}

// ownedResume 取出当前用户拥有的简历，失败时已写出响应。
func ownedResume(c *gin.Context, db *gorm.DB) (*database.Resume, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return nil, false
	}
	row, err := getResumeForUser(c.Request.Context(), db, c.Param("id"), userID)
	if err != nil {
		lookupFailed(c, err, "resume")
		return nil, false
	}
	return row, true
}

func getResumeForUser(ctx context.Context, db *gorm.DB, idParam string, userID uint) (*database.Resume, error) {
	resumeID, err := parseID(idParam)
	if err != nil {
		return nil, err
	}

	var row database.Resume
	if err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", resumeID, userID).
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// loadResumeTree 预加载区块、条目与设计配置，区块与条目均按 position 排序。
func loadResumeTree(ctx context.Context, db *gorm.DB, resumeID uint) (database.Resume, error) {
	byPosition := func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC, id ASC") }

	var row database.Resume
	err := db.WithContext(ctx).
		Preload("Sections", byPosition).
		Preload("Sections.SectionType").
		Preload("Sections.Items", byPosition).
		Preload("Design").
		First(&row, resumeID).Error
	return row, err
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
