package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/database"
)

const (
	VisibilityPublic   = "public"
	VisibilityUnlisted = "unlisted"
	VisibilityPrivate  = "private"

	sharePasswordHeader = "X-Share-Password"
	shareSlugAttempts   = 10
)

var errSlugExhausted = errors.New("could not allocate unique share slug")

// ShareHandler 负责分享链接的管理与公开访问。
type ShareHandler struct {
	db  *gorm.DB
	now func() time.Time
}

func NewShareHandler(db *gorm.DB) *ShareHandler {
	return &ShareHandler{db: db, now: time.Now}
}

type createShareRequest struct {
	Visibility string     `json:"visibility" binding:"required,oneof=public unlisted private"`
	Password   *string    `json:"password"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

type updateShareRequest struct {
	Visibility *string    `json:"visibility" binding:"omitempty,oneof=public unlisted private"`
	Password   *string    `json:"password"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

type verifyShareRequest struct {
	Password string `json:"password" binding:"required"`
}

type shareResponse struct {
	ID          uint       `json:"id"`
	ResumeID    uint       `json:"resume_id"`
	Slug        string     `json:"slug"`
	Visibility  string     `json:"visibility"`
	HasPassword bool       `json:"has_password"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ViewCount   int        `json:"view_count"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateShare 为简历创建分享链接，slug 为 8 字节随机十六进制。
func (h *ShareHandler) CreateShare(c *gin.Context) {
	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}

	link := database.SharingLink{
		ResumeID:   owner.ID,
		Visibility: req.Visibility,
		ExpiresAt:  req.ExpiresAt,
	}
	if req.Password != nil && *req.Password != "" {
		hash, ok := hashSharePassword(c, *req.Password)
		if !ok {
			return
		}
		link.PasswordHash = &hash
	}

	ctx := c.Request.Context()
	if err := h.createWithUniqueSlug(ctx, &link); err != nil {
		loggerFrom(c).Error("create share link failed", slog.Any("error", err))
		Internal(c, "failed to create share link")
		return
	}

	c.JSON(http.StatusCreated, newShareResponse(link))
}

// ListShares 列出简历的全部分享链接。
func (h *ShareHandler) ListShares(c *gin.Context) {
	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}

	var rows []database.SharingLink
	if err := h.db.WithContext(c.Request.Context()).
		Where("resume_id = ?", owner.ID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		Internal(c, "failed to list share links")
		return
	}

	out := make([]shareResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, newShareResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// UpdateShare 修改可见性、密码或过期时间；password 为空字符串表示取消密码。
func (h *ShareHandler) UpdateShare(c *gin.Context) {
	var req updateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	link, ok := h.ownedLink(c)
	if !ok {
		return
	}

	updates := map[string]any{}
	if req.Visibility != nil {
		updates["visibility"] = *req.Visibility
	}
	if req.ExpiresAt != nil {
		updates["expires_at"] = *req.ExpiresAt
	}
	if req.Password != nil {
		if *req.Password == "" {
			updates["password_hash"] = nil
		} else {
			hash, ok := hashSharePassword(c, *req.Password)
			if !ok {
				return
			}
			updates["password_hash"] = hash
		}
	}

	ctx := c.Request.Context()
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(link).Updates(updates).Error; err != nil {
			Internal(c, "failed to update share link")
			return
		}
		if err := h.db.WithContext(ctx).First(link, link.ID).Error; err != nil {
			Internal(c, "failed to reload share link")
			return
		}
	}

	c.JSON(http.StatusOK, newShareResponse(*link))
}

// DeleteShare 删除分享链接。
func (h *ShareHandler) DeleteShare(c *gin.Context) {
	link, ok := h.ownedLink(c)
	if !ok {
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Delete(&database.SharingLink{}, link.ID).Error; err != nil {
		Internal(c, "failed to delete share link")
		return
	}
	c.Status(http.StatusNoContent)
}

// ViewShare 公开访问分享的简历。过期或私有链接一律按不存在处理。
func (h *ShareHandler) ViewShare(c *gin.Context) {
	link, ok := h.visibleLink(c)
	if !ok {
		return
	}

	if link.PasswordHash != nil {
		password := c.GetHeader(sharePasswordHeader)
		if password == "" || !auth.CheckPasswordHash(password, *link.PasswordHash) {
			Unauthorized(c)
			return
		}
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(link).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
		loggerFrom(c).Warn("increment view count failed", slog.Any("error", err))
	}

	tree, err := loadResumeTree(ctx, h.db, link.ResumeID)
	if err != nil {
		lookupFailed(c, err, "resume")
		return
	}
	c.JSON(http.StatusOK, tree.ToDomain())
}

// VerifyShare 校验分享链接密码。
func (h *ShareHandler) VerifyShare(c *gin.Context) {
	var req verifyShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	link, ok := h.visibleLink(c)
	if !ok {
		return
	}
	if link.PasswordHash != nil && !auth.CheckPasswordHash(req.Password, *link.PasswordHash) {
		Unauthorized(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (h *ShareHandler) visibleLink(c *gin.Context) (*database.SharingLink, bool) {
	slug := strings.TrimSpace(c.Param("slug"))
	var link database.SharingLink
	if err := h.db.WithContext(c.Request.Context()).
		Where(&database.SharingLink{Slug: slug}).
		First(&link).Error; err != nil {
		lookupFailed(c, err, "share link")
		return nil, false
	}
	if link.Visibility == VisibilityPrivate {
		NotFound(c, "share link not found")
		return nil, false
	}
	if link.ExpiresAt != nil && !link.ExpiresAt.After(h.now()) {
		NotFound(c, "share link not found")
		return nil, false
	}
	return &link, true
}

func (h *ShareHandler) ownedLink(c *gin.Context) (*database.SharingLink, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return nil, false
	}
	id, err := parseID(c.Param("linkId"))
	if err != nil {
		lookupFailed(c, err, "share link")
		return nil, false
	}

	var link database.SharingLink
	if err := h.db.WithContext(c.Request.Context()).
		Joins("JOIN resumes ON resumes.id = sharing_links.resume_id AND resumes.deleted_at IS NULL").
		Where("sharing_links.id = ? AND resumes.user_id = ?", id, userID).
		First(&link).Error; err != nil {
		lookupFailed(c, err, "share link")
		return nil, false
	}
	return &link, true
}

func (h *ShareHandler) createWithUniqueSlug(ctx context.Context, link *database.SharingLink) error {
	for attempt := 0; attempt < shareSlugAttempts; attempt++ {
		slug, err := randomHex(8)
		if err != nil {
			return err
		}
		var n int64
		if err := h.db.WithContext(ctx).Model(&database.SharingLink{}).
			Where(&database.SharingLink{Slug: slug}).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		link.Slug = slug
		return h.db.WithContext(ctx).Create(link).Error
	}
	return errSlugExhausted
}

func hashSharePassword(c *gin.Context, password string) (string, bool) {
	if len(password) < 4 || len(password) > 72 {
		BadRequest(c, "password must be between 4 and 72 characters")
		return "", false
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		Internal(c, "failed to hash password")
		return "", false
	}
	return hash, true
}

func newShareResponse(l database.SharingLink) shareResponse {
	return shareResponse{
		ID:          l.ID,
		ResumeID:    l.ResumeID,
		Slug:        l.Slug,
		Visibility:  l.Visibility,
		HasPassword: l.PasswordHash != nil,
		ExpiresAt:   l.ExpiresAt,
		ViewCount:   l.ViewCount,
		CreatedAt:   l.CreatedAt,
	}
}
