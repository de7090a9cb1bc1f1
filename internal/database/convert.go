package database

import (
	"encoding/json"

	"gorm.io/datatypes"

	"resumeBuilder/internal/resume"
)

// ToDomain 把数据库中的简历转换为共享的文档树。调用方负责预加载关联并按 position 排序。
func (r Resume) ToDomain() resume.Resume {
	out := resume.Resume{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Slug:      r.Slug,
		Status:    resume.Status(r.Status),
		Sections:  make([]resume.Section, 0, len(r.Sections)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for _, s := range r.Sections {
		out.Sections = append(out.Sections, s.ToDomain())
	}
	if r.Design != nil {
		d := r.Design.ToDomain()
		out.Template = &d
	}
	return out
}

// ToDomain 转换区块及其条目。
func (s Section) ToDomain() resume.Section {
	out := resume.Section{
		ID:            s.ID,
		ResumeID:      s.ResumeID,
		SectionTypeID: s.SectionTypeID,
		SectionType:   s.SectionType.ToDomain(),
		Heading:       s.Heading,
		Position:      s.Position,
		Visible:       s.Visible,
		LayoutConfig:  rawOrNil(s.LayoutConfig),
		Items:         make([]resume.SectionItem, 0, len(s.Items)),
	}
	for _, it := range s.Items {
		out.Items = append(out.Items, it.ToDomain())
	}
	return out
}

// ToDomain 转换条目。
func (it SectionItem) ToDomain() resume.SectionItem {
	data := rawOrNil(it.DataJSON)
	if data == nil {
		data = json.RawMessage(`{}`)
	}
	return resume.SectionItem{
		ID:        it.ID,
		SectionID: it.SectionID,
		Position:  it.Position,
		DataJSON:  data,
	}
}

// ToDomain 转换区块类型。
func (t SectionType) ToDomain() resume.SectionType {
	return resume.SectionType{
		ID:            t.ID,
		Key:           t.Key,
		Name:          t.Name,
		IsSingleton:   t.IsSingleton,
		DefaultFields: rawOrNil(t.DefaultFields),
	}
}

// ToDomain 转换设计配置，覆盖项解析失败时按空处理。
func (d ResumeDesign) ToDomain() resume.DesignConfig {
	out := resume.DesignConfig{
		TemplateID:      d.TemplateID,
		CustomOverrides: map[string]any{},
	}
	if d.ThemeID != nil {
		id := *d.ThemeID
		out.ThemeID = &id
	}
	if len(d.CustomOverrides) > 0 {
		var overrides map[string]any
		if err := json.Unmarshal(d.CustomOverrides, &overrides); err == nil && overrides != nil {
			out.CustomOverrides = overrides
		}
	}
	return out
}

// JSONOf 把任意值编码为 datatypes.JSON，nil 编码为 {}。
func JSONOf(v any) (datatypes.JSON, error) {
	if v == nil {
		return datatypes.JSON(`{}`), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}

// rawOrNil 把空值和 SQL NULL（datatypes.JSON 扫描为 "null"）都视为未设置。
func rawOrNil(j datatypes.JSON) json.RawMessage {
	if len(j) == 0 || string(j) == "null" {
		return nil
	}
	out := make(json.RawMessage, len(j))
	copy(out, j)
	return out
}
