package resume

import (
	"encoding/json"
	"slices"
	"time"

	deep "github.com/brunoga/deep/v5"
)

// Status 表示简历的发布状态。
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Valid 判断状态是否为已知取值。
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// 内置的区块类型 key，与种子数据保持一致。
const (
	SectionSummary        = "summary"
	SectionExperience     = "experience"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionProjects       = "projects"
	SectionCertifications = "certifications"
	SectionAwards         = "awards"
	SectionVolunteer      = "volunteer"
	SectionLanguages      = "languages"
	SectionCustom         = "custom"
)

// Resume 是编辑器与服务端共享的简历文档树。
type Resume struct {
	ID        uint          `json:"id"`
	UserID    uint          `json:"user_id"`
	Title     string        `json:"title"`
	Slug      string        `json:"slug"`
	Status    Status        `json:"status"`
	Sections  []Section     `json:"sections"`
	Template  *DesignConfig `json:"template,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// SectionType 描述区块类型，singleton 类型在一份简历中最多出现一次。
type SectionType struct {
	ID            uint            `json:"id"`
	Key           string          `json:"key"`
	Name          string          `json:"name"`
	IsSingleton   bool            `json:"is_singleton"`
	DefaultFields json.RawMessage `json:"default_fields,omitempty"`
}

// Section 是简历中的一个区块，例如 "工作经历"。
type Section struct {
	ID            uint            `json:"id"`
	ResumeID      uint            `json:"resume_id"`
	SectionTypeID uint            `json:"section_type_id"`
	SectionType   SectionType     `json:"section_type"`
	Heading       string          `json:"heading"`
	Position      int             `json:"position"`
	Visible       bool            `json:"visible"`
	LayoutConfig  json.RawMessage `json:"layout_config,omitempty"`
	Items         []SectionItem   `json:"items"`
}

// SectionItem 是区块中的一条记录，DataJSON 的结构由区块类型决定。
type SectionItem struct {
	ID        uint            `json:"id"`
	SectionID uint            `json:"section_id"`
	Position  int             `json:"position"`
	DataJSON  json.RawMessage `json:"data_json"`
}

// DesignConfig 描述简历使用的模板、主题以及稀疏的自定义覆盖项。
type DesignConfig struct {
	TemplateID      uint           `json:"template_id"`
	ThemeID         *uint          `json:"theme_id,omitempty"`
	CustomOverrides map[string]any `json:"custom_overrides"`
}

// PositionPair 是重排操作的最小单位。
type PositionPair struct {
	ID       uint `json:"id"`
	Position int  `json:"position"`
}

// ResumePatch 是简历顶层字段的局部更新。
type ResumePatch struct {
	Title  *string `json:"title,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// SectionPatch 是区块字段的局部更新。ClearLayoutConfig 把布局恢复为未设置，
// 同时给出 LayoutConfig 时以 LayoutConfig 为准。
type SectionPatch struct {
	Heading           *string         `json:"heading,omitempty"`
	Visible           *bool           `json:"visible,omitempty"`
	LayoutConfig      json.RawMessage `json:"layout_config,omitempty"`
	ClearLayoutConfig bool            `json:"clear_layout_config,omitempty"`
}

// ItemPatch 是区块条目的局部更新。
type ItemPatch struct {
	DataJSON json.RawMessage `json:"data_json,omitempty"`
}

// DesignPatch 是设计配置的局部更新；CustomOverrides 中值为 nil 的 key 会被删除。
// ClearTheme 取消主题选择，同时给出 ThemeID 时以 ThemeID 为准。
type DesignPatch struct {
	TemplateID      *uint          `json:"template_id,omitempty"`
	ThemeID         *uint          `json:"theme_id,omitempty"`
	ClearTheme      bool           `json:"clear_theme,omitempty"`
	CustomOverrides map[string]any `json:"custom_overrides,omitempty"`
}

// NewSection 是创建区块时的请求体。
type NewSection struct {
	SectionTypeID uint   `json:"section_type_id"`
	Heading       string `json:"heading"`
	Position      *int   `json:"position,omitempty"`
}

// NewItem 是创建条目时的请求体。
type NewItem struct {
	DataJSON json.RawMessage `json:"data_json"`
	Position *int            `json:"position,omitempty"`
}

// IsEmpty 判断补丁是否不包含任何字段。
func (p ResumePatch) IsEmpty() bool { return p.Title == nil && p.Status == nil }

// IsEmpty 判断补丁是否不包含任何字段。
func (p SectionPatch) IsEmpty() bool {
	return p.Heading == nil && p.Visible == nil && p.LayoutConfig == nil && !p.ClearLayoutConfig
}

// IsEmpty 判断补丁是否不包含任何字段。
func (p DesignPatch) IsEmpty() bool {
	return p.TemplateID == nil && p.ThemeID == nil && !p.ClearTheme && len(p.CustomOverrides) == 0
}

// Apply 将补丁合并进简历，返回是否有字段发生变化。
func (r *Resume) Apply(p ResumePatch) bool {
	changed := false
	if p.Title != nil && *p.Title != r.Title {
		r.Title = *p.Title
		changed = true
	}
	if p.Status != nil && *p.Status != r.Status {
		r.Status = *p.Status
		changed = true
	}
	return changed
}

// Apply 将补丁合并进区块，返回是否有字段发生变化。
func (s *Section) Apply(p SectionPatch) bool {
	changed := false
	if p.Heading != nil && *p.Heading != s.Heading {
		s.Heading = *p.Heading
		changed = true
	}
	if p.Visible != nil && *p.Visible != s.Visible {
		s.Visible = *p.Visible
		changed = true
	}
	switch {
	case p.LayoutConfig != nil:
		if !jsonEqual(p.LayoutConfig, s.LayoutConfig) {
			s.LayoutConfig = deep.Clone(p.LayoutConfig)
			changed = true
		}
	case p.ClearLayoutConfig && s.LayoutConfig != nil:
		s.LayoutConfig = nil
		changed = true
	}
	return changed
}

// Apply 将补丁合并进条目，返回是否有字段发生变化。
func (it *SectionItem) Apply(p ItemPatch) bool {
	if p.DataJSON == nil || jsonEqual(p.DataJSON, it.DataJSON) {
		return false
	}
	it.DataJSON = deep.Clone(p.DataJSON)
	return true
}

// Apply 将补丁合并进设计配置。覆盖项按 key 稀疏合并，nil 值表示删除该 key。
func (d *DesignConfig) Apply(p DesignPatch) bool {
	changed := false
	if p.TemplateID != nil && *p.TemplateID != d.TemplateID {
		d.TemplateID = *p.TemplateID
		changed = true
	}
	switch {
	case p.ThemeID != nil:
		if d.ThemeID == nil || *d.ThemeID != *p.ThemeID {
			id := *p.ThemeID
			d.ThemeID = &id
			changed = true
		}
	case p.ClearTheme && d.ThemeID != nil:
		d.ThemeID = nil
		changed = true
	}
	for key, value := range p.CustomOverrides {
		current, exists := d.CustomOverrides[key]
		if value == nil {
			if exists {
				delete(d.CustomOverrides, key)
				changed = true
			}
			continue
		}
		if exists && valueEqual(current, value) {
			continue
		}
		if d.CustomOverrides == nil {
			d.CustomOverrides = make(map[string]any)
		}
		d.CustomOverrides[key] = deep.Clone(value)
		changed = true
	}
	return changed
}

// SectionIndex 返回指定区块在列表中的下标，不存在时返回 -1。
func (r *Resume) SectionIndex(id uint) int {
	return slices.IndexFunc(r.Sections, func(s Section) bool { return s.ID == id })
}

// ItemIndex 返回指定条目在区块中的下标，不存在时返回 -1。
func (s *Section) ItemIndex(id uint) int {
	return slices.IndexFunc(s.Items, func(it SectionItem) bool { return it.ID == id })
}

// SortSections 按 position 升序稳定排序。
func (r *Resume) SortSections() {
	slices.SortStableFunc(r.Sections, func(a, b Section) int { return a.Position - b.Position })
}

// SortItems 按 position 升序稳定排序。
func (s *Section) SortItems() {
	slices.SortStableFunc(s.Items, func(a, b SectionItem) int { return a.Position - b.Position })
}
