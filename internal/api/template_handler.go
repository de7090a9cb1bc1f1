package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/resume"
)

var errThemeMismatch = errors.New("theme does not belong to template")

// TemplateHandler 负责模板目录与简历设计配置。
type TemplateHandler struct {
	db *gorm.DB
}

func NewTemplateHandler(db *gorm.DB) *TemplateHandler {
	return &TemplateHandler{db: db}
}

type themeResponse struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	ColorScheme json.RawMessage `json:"color_scheme,omitempty"`
	Typography  json.RawMessage `json:"typography,omitempty"`
	Spacing     json.RawMessage `json:"spacing,omitempty"`
}

type templateResponse struct {
	ID           uint            `json:"id"`
	Key          string          `json:"key"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	PreviewImage string          `json:"preview_image,omitempty"`
	LayoutConfig json.RawMessage `json:"layout_config,omitempty"`
	Themes       []themeResponse `json:"themes"`
}

type applyTemplateRequest struct {
	TemplateID uint  `json:"template_id" binding:"required"`
	ThemeID    *uint `json:"theme_id"`
}

// GET /v1/templates
// 列出全部公开模板及其主题。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	var rows []database.Template
	if err := h.db.WithContext(c.Request.Context()).
		Preload("Themes", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("is_public = ?", true).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		Internal(c, "failed to list templates")
		return
	}

	out := make([]templateResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, newTemplateResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// GET /v1/templates/:id
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		lookupFailed(c, err, "template")
		return
	}

	var row database.Template
	if err := h.db.WithContext(c.Request.Context()).
		Preload("Themes", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("id = ? AND is_public = ?", id, true).
		First(&row).Error; err != nil {
		lookupFailed(c, err, "template")
		return
	}

	c.JSON(http.StatusOK, newTemplateResponse(row))
}

// POST /v1/resumes/:id/template
// 切换模板与主题，自定义覆盖项随之清空。
func (h *TemplateHandler) ApplyTemplate(c *gin.Context) {
	var req applyTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	tpl, err := resolveTemplate(ctx, h.db, &req.TemplateID)
	if err != nil {
		lookupFailed(c, err, "template")
		return
	}
	if req.ThemeID != nil {
		if err := checkThemeBelongs(ctx, h.db, tpl.ID, *req.ThemeID); err != nil {
			themeLookupFailed(c, err)
			return
		}
	}

	design, err := loadDesign(ctx, h.db, owner.ID)
	if err != nil {
		loggerFrom(c).Error("load design failed", slog.Any("error", err))
		Internal(c, "failed to load design")
		return
	}
	cfg := resume.DesignConfig{TemplateID: tpl.ID, ThemeID: req.ThemeID, CustomOverrides: map[string]any{}}
	if err := saveDesign(ctx, h.db, design, cfg); err != nil {
		loggerFrom(c).Error("apply template failed", slog.Any("error", err))
		Internal(c, "failed to apply template")
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// GET /v1/resumes/:id/design
func (h *TemplateHandler) GetDesign(c *gin.Context) {
	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}

	design, err := loadDesign(c.Request.Context(), h.db, owner.ID)
	if err != nil {
		Internal(c, "failed to load design")
		return
	}
	c.JSON(http.StatusOK, design.ToDomain())
}

// PATCH /v1/resumes/:id/design
// 覆盖项按 key 稀疏合并，值为 null 的 key 被移除。
func (h *TemplateHandler) PatchDesign(c *gin.Context) {
	var patch resume.DesignPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}

	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	design, err := loadDesign(ctx, h.db, owner.ID)
	if err != nil {
		Internal(c, "failed to load design")
		return
	}

	cfg := design.ToDomain()
	templateChanged := patch.TemplateID != nil && *patch.TemplateID != cfg.TemplateID
	if templateChanged {
		if _, err := resolveTemplate(ctx, h.db, patch.TemplateID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				BadRequest(c, "unknown template")
				return
			}
			Internal(c, "failed to resolve template")
			return
		}
	}
	if !cfg.Apply(patch) {
		c.JSON(http.StatusOK, cfg)
		return
	}
	// 换模板但未指定主题时，旧主题不再适用。
	if templateChanged && patch.ThemeID == nil {
		cfg.ThemeID = nil
	}
	if cfg.ThemeID != nil && patch.ThemeID != nil {
		if err := checkThemeBelongs(ctx, h.db, cfg.TemplateID, *cfg.ThemeID); err != nil {
			themeLookupFailed(c, err)
			return
		}
	}

	if err := saveDesign(ctx, h.db, design, cfg); err != nil {
		loggerFrom(c).Error("patch design failed", slog.Any("error", err))
		Internal(c, "failed to update design")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func newTemplateResponse(t database.Template) templateResponse {
	out := templateResponse{
		ID:           t.ID,
		Key:          t.Key,
		Name:         t.Name,
		Description:  t.Description,
		PreviewImage: t.PreviewImage,
		LayoutConfig: json.RawMessage(t.LayoutConfig),
		Themes:       make([]themeResponse, 0, len(t.Themes)),
	}
	for _, th := range t.Themes {
		out.Themes = append(out.Themes, themeResponse{
			ID:          th.ID,
			Name:        th.Name,
			ColorScheme: json.RawMessage(th.ColorScheme),
			Typography:  json.RawMessage(th.Typography),
			Spacing:     json.RawMessage(th.Spacing),
		})
	}
	return out
}

// resolveTemplate 按 id 查模板；id 为空时返回默认模板。
func resolveTemplate(ctx context.Context, db *gorm.DB, id *uint) (database.Template, error) {
	var tpl database.Template
	q := db.WithContext(ctx)
	if id != nil && *id != 0 {
		err := q.First(&tpl, *id).Error
		return tpl, err
	}
	err := q.Where(&database.Template{Key: database.DefaultTemplateKey}).First(&tpl).Error
	return tpl, err
}

func checkThemeBelongs(ctx context.Context, db *gorm.DB, templateID, themeID uint) error {
	var theme database.Theme
	if err := db.WithContext(ctx).First(&theme, themeID).Error; err != nil {
		return err
	}
	if theme.TemplateID != templateID {
		return errThemeMismatch
	}
	return nil
}

func themeLookupFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errThemeMismatch):
		BadRequest(c, "theme does not belong to template")
	case errors.Is(err, gorm.ErrRecordNotFound):
		BadRequest(c, "unknown theme")
	default:
		Internal(c, "failed to query theme")
	}
}

// loadDesign 读取简历的设计配置，缺失时按默认模板补建。
func loadDesign(ctx context.Context, db *gorm.DB, resumeID uint) (*database.ResumeDesign, error) {
	var design database.ResumeDesign
	err := db.WithContext(ctx).Where("resume_id = ?", resumeID).First(&design).Error
	if err == nil {
		return &design, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tpl, err := resolveTemplate(ctx, db, nil)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	design = database.ResumeDesign{ResumeID: resumeID, TemplateID: tpl.ID, CustomOverrides: []byte(`{}`)}
	if err := db.WithContext(ctx).Create(&design).Error; err != nil {
		return nil, err
	}
	return &design, nil
}

func saveDesign(ctx context.Context, db *gorm.DB, design *database.ResumeDesign, cfg resume.DesignConfig) error {
	overrides, err := database.JSONOf(cfg.CustomOverrides)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Model(design).Updates(map[string]any{
		"template_id":      cfg.TemplateID,
		"theme_id":         cfg.ThemeID,
		"custom_overrides": overrides,
	}).Error
}
