package resume

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 条目的 data_json 由客户端自由编辑，这里的解码器在字段缺失或类型不符时
// 统一回落到空字符串/空切片，不返回错误。

// Experience 是工作经历条目。
type Experience struct {
	Company     string
	Role        string
	Location    string
	StartDate   string
	EndDate     string
	Current     bool
	Description []string
}

// Education 是教育经历条目。
type Education struct {
	School    string
	Degree    string
	Field     string
	StartDate string
	EndDate   string
	GPA       string
	Honors    string
}

// Project 是项目经历条目。
type Project struct {
	Name         string
	URL          string
	Role         string
	Description  string
	Technologies []string
}

// SkillCategory 是一组同类技能。
type SkillCategory struct {
	Name   string
	Skills []string
}

// Skills 是技能条目。
type Skills struct {
	Categories []SkillCategory
}

// Summary 是个人简介条目。
type Summary struct {
	Text string
}

// Generic 用于自定义等没有固定结构的区块，保留标题与正文。
type Generic struct {
	Title    string
	Subtitle string
	Date     string
	Text     string
}

type payload map[string]any

func decodePayload(raw json.RawMessage) payload {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return payload{}
	}
	return m
}

func (p payload) str(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprint(v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	}
	return ""
}

func (p payload) boolean(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

func (p payload) strings(key string) []string {
	return toStrings(p[key])
}

func toStrings(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if val == "" {
			return []string{}
		}
		return []string{val}
	}
	return []string{}
}

// DecodeExperience 宽松解析工作经历条目。
func DecodeExperience(raw json.RawMessage) Experience {
	p := decodePayload(raw)
	return Experience{
		Company:     p.str("company"),
		Role:        p.str("role"),
		Location:    p.str("location"),
		StartDate:   p.str("startDate"),
		EndDate:     p.str("endDate"),
		Current:     p.boolean("current"),
		Description: p.strings("description"),
	}
}

// DecodeEducation 宽松解析教育经历条目。
func DecodeEducation(raw json.RawMessage) Education {
	p := decodePayload(raw)
	return Education{
		School:    p.str("school"),
		Degree:    p.str("degree"),
		Field:     p.str("field"),
		StartDate: p.str("startDate"),
		EndDate:   p.str("endDate"),
		GPA:       p.str("gpa"),
		Honors:    p.str("honors"),
	}
}

// DecodeProject 宽松解析项目条目。
func DecodeProject(raw json.RawMessage) Project {
	p := decodePayload(raw)
	return Project{
		Name:         p.str("name"),
		URL:          p.str("url"),
		Role:         p.str("role"),
		Description:  p.str("description"),
		Technologies: p.strings("technologies"),
	}
}

// DecodeSkills 宽松解析技能条目，无效的分类会被跳过。
func DecodeSkills(raw json.RawMessage) Skills {
	p := decodePayload(raw)
	out := Skills{Categories: []SkillCategory{}}
	list, _ := p["categories"].([]any)
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		cat := payload(m)
		out.Categories = append(out.Categories, SkillCategory{
			Name:   cat.str("name"),
			Skills: cat.strings("skills"),
		})
	}
	return out
}

// DecodeSummary 宽松解析简介条目。
func DecodeSummary(raw json.RawMessage) Summary {
	return Summary{Text: decodePayload(raw).str("text")}
}

// DecodeGeneric 宽松解析无固定结构的条目。
func DecodeGeneric(raw json.RawMessage) Generic {
	p := decodePayload(raw)
	g := Generic{
		Title:    firstNonEmpty(p.str("title"), p.str("name")),
		Subtitle: firstNonEmpty(p.str("subtitle"), p.str("issuer"), p.str("organization")),
		Date:     firstNonEmpty(p.str("date"), p.str("startDate")),
		Text:     firstNonEmpty(p.str("text"), p.str("description")),
	}
	return g
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
