package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	deep "github.com/brunoga/deep/v5"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/resume"
)

type PrintWarning struct {
	Code        int      `json:"code"`
	Message     string   `json:"message"`
	MissingKeys []string `json:"missing_keys,omitempty"`
}

// PrintTemplate 是渲染所需的模板信息。
type PrintTemplate struct {
	Key          string          `json:"key"`
	Name         string          `json:"name"`
	LayoutConfig json.RawMessage `json:"layout_config,omitempty"`
}

// PrintTheme 是渲染所需的主题信息。
type PrintTheme struct {
	Name        string          `json:"name"`
	ColorScheme json.RawMessage `json:"color_scheme,omitempty"`
	Typography  json.RawMessage `json:"typography,omitempty"`
	Spacing     json.RawMessage `json:"spacing,omitempty"`
}

// PrintData 是 worker 渲染 PDF 时读取的完整数据。
// 模板或主题缺失时不中断渲染，而是附带 4004 警告并使用默认样式。
type PrintData struct {
	Resume   resume.Resume       `json:"resume"`
	Design   resume.DesignConfig `json:"design"`
	Template *PrintTemplate      `json:"template,omitempty"`
	Theme    *PrintTheme         `json:"theme,omitempty"`
	Warnings []PrintWarning      `json:"warnings,omitempty"`
}

// PrintHandler 提供仅供 worker 调用的内部接口。
type PrintHandler struct {
	db *gorm.DB
}

func NewPrintHandler(db *gorm.DB) *PrintHandler {
	return &PrintHandler{db: db}
}

// GetPrintData 返回渲染 PDF 所需的简历树与设计信息。
func (h *PrintHandler) GetPrintData(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		lookupFailed(c, err, "resume")
		return
	}

	data, err := BuildPrintData(c.Request.Context(), h.db, id)
	if err != nil {
		lookupFailed(c, err, "resume")
		return
	}
	for _, w := range data.Warnings {
		loggerFrom(c).Warn("print data resource missing",
			slog.Int("code", w.Code),
			slog.Any("missing_keys", w.MissingKeys),
		)
	}

	c.JSON(http.StatusOK, data)
}

// BuildPrintData 组装打印数据。
// 约定：
// - 简历不存在 => 返回 gorm.ErrRecordNotFound
// - 模板/主题不存在 => 记录 warning(4004)，渲染使用默认样式
func BuildPrintData(ctx context.Context, db *gorm.DB, resumeID uint) (PrintData, error) {
	tree, err := loadResumeTree(ctx, db, resumeID)
	if err != nil {
		return PrintData{}, err
	}

	doc := tree.ToDomain()
	data := PrintData{Resume: doc}
	if doc.Template != nil {
		data.Design = deep.Clone(*doc.Template)
	} else {
		data.Design = resume.DesignConfig{CustomOverrides: map[string]any{}}
	}

	var missing []string
	var tpl database.Template
	switch err := db.WithContext(ctx).First(&tpl, data.Design.TemplateID).Error; {
	case err == nil:
		data.Template = &PrintTemplate{Key: tpl.Key, Name: tpl.Name, LayoutConfig: json.RawMessage(tpl.LayoutConfig)}
	case errors.Is(err, gorm.ErrRecordNotFound):
		missing = append(missing, fmt.Sprintf("template:%d", data.Design.TemplateID))
	default:
		return PrintData{}, err
	}

	if data.Design.ThemeID != nil {
		var theme database.Theme
		switch err := db.WithContext(ctx).First(&theme, *data.Design.ThemeID).Error; {
		case err == nil:
			data.Theme = &PrintTheme{
				Name:        theme.Name,
				ColorScheme: json.RawMessage(theme.ColorScheme),
				Typography:  json.RawMessage(theme.Typography),
				Spacing:     json.RawMessage(theme.Spacing),
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			missing = append(missing, fmt.Sprintf("theme:%d", *data.Design.ThemeID))
		default:
			return PrintData{}, err
		}
	}

	if len(missing) > 0 {
		data.Warnings = append(data.Warnings, PrintWarning{
			Code:        errcode.ResourceMissing,
			Message:     errcode.Message(errcode.ResourceMissing),
			MissingKeys: missing,
		})
	}
	return data, nil
}
