package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/resume"
)

// MaxVersionsPerResume 是每份简历保留的快照数量上限。
const MaxVersionsPerResume = 50

// VersionHandler 负责简历快照的创建、列出与恢复。
type VersionHandler struct {
	db *gorm.DB
}

func NewVersionHandler(db *gorm.DB) *VersionHandler {
	return &VersionHandler{db: db}
}

type versionResponse struct {
	VersionNum int       `json:"version_num"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateVersion 为当前简历拍一张快照，超出上限的旧快照会被清理。
func (h *VersionHandler) CreateVersion(c *gin.Context) {
	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	tree, err := loadResumeTree(ctx, h.db, owner.ID)
	if err != nil {
		lookupFailed(c, err, "resume")
		return
	}
	snapshot, err := json.Marshal(tree.ToDomain())
	if err != nil {
		Internal(c, "failed to encode snapshot")
		return
	}

	var version database.ResumeVersion
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last struct{ N *int }
		if err := tx.Model(&database.ResumeVersion{}).
			Select("MAX(version_num) AS n").
			Where("resume_id = ?", owner.ID).
			Scan(&last).Error; err != nil {
			return err
		}
		next := 1
		if last.N != nil {
			next = *last.N + 1
		}

		version = database.ResumeVersion{
			ResumeID:   owner.ID,
			VersionNum: next,
			Snapshot:   datatypes.JSON(snapshot),
		}
		if err := tx.Create(&version).Error; err != nil {
			return err
		}
		return tx.Where("resume_id = ? AND version_num <= ?", owner.ID, next-MaxVersionsPerResume).
			Delete(&database.ResumeVersion{}).Error
	})
	if err != nil {
		loggerFrom(c).Error("create version failed", slog.Any("error", err))
		Internal(c, "failed to create version")
		return
	}

	c.JSON(http.StatusCreated, versionResponse{VersionNum: version.VersionNum, CreatedAt: version.CreatedAt})
}

// ListVersions 按版本号倒序列出快照（不含快照内容）。
func (h *VersionHandler) ListVersions(c *gin.Context) {
	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}

	var rows []database.ResumeVersion
	if err := h.db.WithContext(c.Request.Context()).
		Select("id", "resume_id", "version_num", "created_at").
		Where("resume_id = ?", owner.ID).
		Order("version_num DESC").
		Find(&rows).Error; err != nil {
		Internal(c, "failed to list versions")
		return
	}

	out := make([]versionResponse, 0, len(rows))
	for _, v := range rows {
		out = append(out, versionResponse{VersionNum: v.VersionNum, CreatedAt: v.CreatedAt})
	}
	c.JSON(http.StatusOK, out)
}

// RestoreVersion 用快照整体替换简历的元信息、区块、条目与设计配置。
func (h *VersionHandler) RestoreVersion(c *gin.Context) {
	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}
	num, err := strconv.Atoi(c.Param("version"))
	if err != nil || num <= 0 {
		BadRequest(c, "invalid version")
		return
	}

	ctx := c.Request.Context()
	var version database.ResumeVersion
	if err := h.db.WithContext(ctx).
		Where("resume_id = ? AND version_num = ?", owner.ID, num).
		First(&version).Error; err != nil {
		lookupFailed(c, err, "version")
		return
	}

	var snap resume.Resume
	if err := json.Unmarshal(version.Snapshot, &snap); err != nil {
		loggerFrom(c).Error("decode snapshot failed", slog.Int("version", num), slog.Any("error", err))
		Internal(c, "failed to decode snapshot")
		return
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return restoreSnapshot(tx, owner, snap)
	})
	if err != nil {
		loggerFrom(c).Error("restore version failed", slog.Int("version", num), slog.Any("error", err))
		Internal(c, "failed to restore version")
		return
	}

	tree, err := loadResumeTree(ctx, h.db, owner.ID)
	if err != nil {
		lookupFailed(c, err, "resume")
		return
	}
	c.JSON(http.StatusOK, tree.ToDomain())
}

func restoreSnapshot(tx *gorm.DB, owner *database.Resume, snap resume.Resume) error {
	updates := map[string]any{"title": snap.Title}
	if snap.Status.Valid() {
		updates["status"] = string(snap.Status)
	}
	if err := tx.Model(owner).Updates(updates).Error; err != nil {
		return err
	}

	sectionIDs := tx.Model(&database.Section{}).Select("id").Where("resume_id = ?", owner.ID)
	if err := tx.Where("section_id IN (?)", sectionIDs).Delete(&database.SectionItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("resume_id = ?", owner.ID).Delete(&database.Section{}).Error; err != nil {
		return err
	}

	for _, s := range snap.Sections {
		row := database.Section{
			ResumeID:      owner.ID,
			SectionTypeID: s.SectionTypeID,
			Heading:       s.Heading,
			Position:      s.Position,
			Visible:       s.Visible,
			LayoutConfig:  datatypes.JSON(s.LayoutConfig),
		}
		for _, it := range s.Items {
			row.Items = append(row.Items, database.SectionItem{
				Position: it.Position,
				DataJSON: datatypes.JSON(it.DataJSON),
			})
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}

	if snap.Template == nil {
		return nil
	}
	overrides, err := database.JSONOf(snap.Template.CustomOverrides)
	if err != nil {
		return err
	}
	var design database.ResumeDesign
	err = tx.Where("resume_id = ?", owner.ID).First(&design).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return tx.Create(&database.ResumeDesign{
			ResumeID:        owner.ID,
			TemplateID:      snap.Template.TemplateID,
			ThemeID:         snap.Template.ThemeID,
			CustomOverrides: overrides,
		}).Error
	case err != nil:
		return err
	}
	return tx.Model(&design).Updates(map[string]any{
		"template_id":      snap.Template.TemplateID,
		"theme_id":         snap.Template.ThemeID,
		"custom_overrides": overrides,
	}).Error
}
