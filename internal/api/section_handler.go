package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/resume"
)

// SectionHandler 负责区块与条目的增删改以及重排。
type SectionHandler struct {
	db *gorm.DB
}

func NewSectionHandler(db *gorm.DB) *SectionHandler {
	return &SectionHandler{db: db}
}

type reorderSectionsRequest struct {
	Sections []resume.PositionPair `json:"sections" binding:"required"`
}

type reorderItemsRequest struct {
	Items []resume.PositionPair `json:"items" binding:"required"`
}

// ListSectionTypes 返回区块类型目录。
func (h *SectionHandler) ListSectionTypes(c *gin.Context) {
	var rows []database.SectionType
	if err := h.db.WithContext(c.Request.Context()).Order("id ASC").Find(&rows).Error; err != nil {
		Internal(c, "failed to list section types")
		return
	}
	out := make([]resume.SectionType, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToDomain())
	}
	c.JSON(http.StatusOK, out)
}

// CreateSection 在简历末尾（或指定位置）新增区块。
func (h *SectionHandler) CreateSection(c *gin.Context) {
	var req resume.NewSection
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.SectionTypeID == 0 {
		BadRequest(c, "section_type_id is required")
		return
	}

	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var st database.SectionType
	if err := h.db.WithContext(ctx).First(&st, req.SectionTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			BadRequest(c, "unknown section type")
			return
		}
		Internal(c, "failed to query section type")
		return
	}

	var row database.Section
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if st.IsSingleton {
			var n int64
			if err := tx.Model(&database.Section{}).
				Where("resume_id = ? AND section_type_id = ?", owner.ID, st.ID).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return errSingletonTaken
			}
		}

		position := 0
		if req.Position != nil && *req.Position > 0 {
			position = *req.Position
		} else {
			last, err := maxPosition(tx, &database.Section{}, "resume_id = ?", owner.ID)
			if err != nil {
				return err
			}
			position = last + 1
		}

		heading := req.Heading
		if heading == "" {
			heading = st.Name
		}
		row = database.Section{
			ResumeID:      owner.ID,
			SectionTypeID: st.ID,
			Heading:       heading,
			Position:      position,
			Visible:       true,
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		if errors.Is(err, errSingletonTaken) {
			Conflict(c, "section type already present")
			return
		}
		loggerFrom(c).Error("create section failed", slog.Any("error", err))
		Internal(c, "failed to create section")
		return
	}

	row.SectionType = st
	c.JSON(http.StatusCreated, row.ToDomain())
}

// UpdateSection 局部更新标题、可见性与布局。
func (h *SectionHandler) UpdateSection(c *gin.Context) {
	var patch resume.SectionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if patch.LayoutConfig != nil && !json.Valid(patch.LayoutConfig) {
		BadRequest(c, "layout_config must be valid json")
		return
	}

	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}
	row, ok := h.sectionOf(c, owner.ID)
	if !ok {
		return
	}

	updates := map[string]any{}
	if patch.Heading != nil {
		updates["heading"] = *patch.Heading
	}
	if patch.Visible != nil {
		updates["visible"] = *patch.Visible
	}
	switch {
	case patch.LayoutConfig != nil:
		updates["layout_config"] = datatypes.JSON(patch.LayoutConfig)
	case patch.ClearLayoutConfig:
		updates["layout_config"] = nil
	}

	ctx := c.Request.Context()
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(row).Updates(updates).Error; err != nil {
			Internal(c, "failed to update section")
			return
		}
	}

	h.respondSection(c, http.StatusOK, row.ID)
}

// DeleteSection 删除区块，并把其后的区块位置前移以保持连续。
func (h *SectionHandler) DeleteSection(c *gin.Context) {
	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}
	row, ok := h.sectionOf(c, owner.ID)
	if !ok {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("section_id = ?", row.ID).Delete(&database.SectionItem{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&database.Section{}, row.ID).Error; err != nil {
			return err
		}
		return tx.Model(&database.Section{}).
			Where("resume_id = ? AND position > ?", owner.ID, row.Position).
			Update("position", gorm.Expr("position - 1")).Error
	})
	if err != nil {
		loggerFrom(c).Error("delete section failed", slog.Any("error", err))
		Internal(c, "failed to delete section")
		return
	}

	c.Status(http.StatusNoContent)
}

// ReorderSections 在事务中批量写入区块位置，不属于该简历的 id 会被忽略。
func (h *SectionHandler) ReorderSections(c *gin.Context) {
	var req reorderSectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for _, p := range req.Sections {
			if err := tx.Model(&database.Section{}).
				Where("id = ? AND resume_id = ?", p.ID, owner.ID).
				Update("position", p.Position).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		loggerFrom(c).Error("reorder sections failed", slog.Any("error", err))
		Internal(c, "failed to reorder sections")
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateItem 在区块中新增条目。
func (h *SectionHandler) CreateItem(c *gin.Context) {
	var req resume.NewItem
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	data, ok := itemData(c, req.DataJSON, true)
	if !ok {
		return
	}

	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}
	section, ok := h.sectionOf(c, owner.ID)
	if !ok {
		return
	}

	var row database.SectionItem
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		position := 0
		if req.Position != nil && *req.Position > 0 {
			position = *req.Position
		} else {
			last, err := maxPosition(tx, &database.SectionItem{}, "section_id = ?", section.ID)
			if err != nil {
				return err
			}
			position = last + 1
		}
		row = database.SectionItem{SectionID: section.ID, Position: position, DataJSON: data}
		return tx.Create(&row).Error
	})
	if err != nil {
		loggerFrom(c).Error("create item failed", slog.Any("error", err))
		Internal(c, "failed to create item")
		return
	}

	c.JSON(http.StatusCreated, row.ToDomain())
}

// UpdateItem 整体替换条目数据。
func (h *SectionHandler) UpdateItem(c *gin.Context) {
	var patch resume.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		BadRequest(c, err.Error())
		return
	}

	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}
	section, ok := h.sectionOf(c, owner.ID)
	if !ok {
		return
	}
	row, ok := h.itemOf(c, section.ID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if patch.DataJSON != nil {
		data, ok := itemData(c, patch.DataJSON, false)
		if !ok {
			return
		}
		if err := h.db.WithContext(ctx).Model(row).Update("data_json", data).Error; err != nil {
			Internal(c, "failed to update item")
			return
		}
		row.DataJSON = data
	}

	c.JSON(http.StatusOK, row.ToDomain())
}

// DeleteItem 删除条目并前移其后的条目。
func (h *SectionHandler) DeleteItem(c *gin.Context) {
	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}
	section, ok := h.sectionOf(c, owner.ID)
	if !ok {
		return
	}
	row, ok := h.itemOf(c, section.ID)
	if !ok {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&database.SectionItem{}, row.ID).Error; err != nil {
			return err
		}
		return tx.Model(&database.SectionItem{}).
			Where("section_id = ? AND position > ?", section.ID, row.Position).
			Update("position", gorm.Expr("position - 1")).Error
	})
	if err != nil {
		loggerFrom(c).Error("delete item failed", slog.Any("error", err))
		Internal(c, "failed to delete item")
		return
	}

	c.Status(http.StatusNoContent)
}

// ReorderItems 在事务中批量写入条目位置。
func (h *SectionHandler) ReorderItems(c *gin.Context) {
	var req reorderItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	owner, ok := ownedResume(c, h.db)
	if !ok {
		return
	}
	section, ok := h.sectionOf(c, owner.ID)
	if !ok {
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		for _, p := range req.Items {
			if err := tx.Model(&database.SectionItem{}).
				Where("id = ? AND section_id = ?", p.ID, section.ID).
				Update("position", p.Position).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		loggerFrom(c).Error("reorder items failed", slog.Any("error", err))
		Internal(c, "failed to reorder items")
		return
	}

	c.Status(http.StatusNoContent)
}

var errSingletonTaken = errors.New("singleton section already present")

func (h *SectionHandler) sectionOf(c *gin.Context, resumeID uint) (*database.Section, bool) {
	id, err := parseID(c.Param("sectionId"))
	if err != nil {
		lookupFailed(c, err, "section")
		return nil, false
	}
	var row database.Section
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND resume_id = ?", id, resumeID).
		First(&row).Error; err != nil {
		lookupFailed(c, err, "section")
		return nil, false
	}
	return &row, true
}

func (h *SectionHandler) itemOf(c *gin.Context, sectionID uint) (*database.SectionItem, bool) {
	id, err := parseID(c.Param("itemId"))
	if err != nil {
		lookupFailed(c, err, "item")
		return nil, false
	}
	var row database.SectionItem
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND section_id = ?", id, sectionID).
		First(&row).Error; err != nil {
		lookupFailed(c, err, "item")
		return nil, false
	}
	return &row, true
}

func (h *SectionHandler) respondSection(c *gin.Context, status int, sectionID uint) {
	byPosition := func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC, id ASC") }
	var row database.Section
	if err := h.db.WithContext(c.Request.Context()).
		Preload("SectionType").
		Preload("Items", byPosition).
		First(&row, sectionID).Error; err != nil {
		lookupFailed(c, err, "section")
		return
	}
	c.JSON(status, row.ToDomain())
}

// itemData 校验条目数据必须是 JSON 对象；allowEmpty 时空值视为 {}。
func itemData(c *gin.Context, raw json.RawMessage, allowEmpty bool) (datatypes.JSON, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		if allowEmpty {
			return datatypes.JSON(`{}`), true
		}
		BadRequest(c, "data_json is required")
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		BadRequest(c, "data_json must be a json object")
		return nil, false
	}
	return datatypes.JSON(raw), true
}

func maxPosition(tx *gorm.DB, model any, where string, args ...any) (int, error) {
	var last sql.NullInt64
	if err := tx.Model(model).Where(where, args...).Select("MAX(position)").Row().Scan(&last); err != nil {
		return 0, err
	}
	return int(last.Int64), nil
}
