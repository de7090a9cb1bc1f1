package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	deep "github.com/brunoga/deep/v5"

	"resumeBuilder/internal/api"
	"resumeBuilder/internal/resume"
)

// 未配置主题或主题缺失时使用的默认样式。
const (
	defaultAccentColor = "#1f2937"
	defaultTextColor   = "#111827"
	defaultFontFamily  = "Helvetica"
	defaultFontSizePt  = 11
	defaultSectionGap  = 16
)

// pdfTemplate 是 A4 版式的 HTML 模板，样式变量来自模板/主题/自定义覆盖项。
var pdfTemplate = template.Must(template.New("resume").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        @page { size: A4; margin: 0; }
        * { -webkit-print-color-adjust: exact; print-color-adjust: exact; }
        body {
            margin: 0;
            font-family: '{{.FontFamily}}', sans-serif;
            font-size: {{.FontSizePt}}pt;
            color: {{.TextColor}};
            background: white;
        }
        .a4-page {
            width: 794px;
            min-height: 1122px;
            padding: 48px;
            box-sizing: border-box;
            {{- if gt .Columns 1}}
            column-count: {{.Columns}};
            column-gap: 32px;
            {{- end}}
        }
        h1 { margin: 0 0 {{.SectionGap}}px; font-size: 2em; color: {{.AccentColor}}; }
        section { margin-bottom: {{.SectionGap}}px; break-inside: avoid; }
        h2 {
            margin: 0 0 6px;
            font-size: 1.15em;
            text-transform: uppercase;
            letter-spacing: 0.05em;
            color: {{.AccentColor}};
            border-bottom: 1px solid {{.AccentColor}};
        }
        .entry { margin-bottom: 8px; }
        .entry-head { display: flex; justify-content: space-between; }
        .entry-title { font-weight: 600; }
        .entry-meta { color: #6b7280; white-space: nowrap; }
        .entry-subtitle { font-style: italic; }
        ul { margin: 4px 0 0 18px; padding: 0; }
        .tags span { display: inline-block; margin: 2px 6px 0 0; }
    </style>
</head>
<body>
    <div class="a4-page">
        <h1>{{.Title}}</h1>
        {{- range .Sections}}
        <section class="section-{{.Key}}">
            <h2>{{.Heading}}</h2>
            {{- range .Entries}}
            <div class="entry">
                {{- if or .Title .Meta}}
                <div class="entry-head">
                    <span class="entry-title">{{.Title}}</span>
                    {{- if .Meta}}<span class="entry-meta">{{.Meta}}</span>{{end}}
                </div>
                {{- end}}
                {{- if .Subtitle}}<div class="entry-subtitle">{{.Subtitle}}</div>{{end}}
                {{- if .Text}}<p>{{.Text}}</p>{{end}}
                {{- if .Bullets}}
                <ul>{{range .Bullets}}<li>{{.}}</li>{{end}}</ul>
                {{- end}}
                {{- if .Tags}}
                <div class="tags">{{range .Tags}}<span>{{.}}</span>{{end}}</div>
                {{- end}}
            </div>
            {{- end}}
        </section>
        {{- end}}
    </div>
</body>
</html>
`))

type pageView struct {
	Title       string
	AccentColor template.CSS
	TextColor   template.CSS
	FontFamily  template.CSS
	FontSizePt  float64
	SectionGap  int
	Columns     int
	Sections    []sectionView
}

type sectionView struct {
	Key     string
	Heading string
	Entries []entryView
}

type entryView struct {
	Title    string
	Subtitle string
	Meta     string
	Text     string
	Bullets  []string
	Tags     []string
}

// renderResumeHTML 把打印数据渲染为完整的 HTML 文档。隐藏区块不输出，区块与条目按 position 排列。
func renderResumeHTML(data api.PrintData) (string, error) {
	view := buildPageView(data)
	var buf bytes.Buffer
	if err := pdfTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("execute pdf template: %w", err)
	}
	return buf.String(), nil
}

func buildPageView(data api.PrintData) pageView {
	view := pageView{
		Title:       data.Resume.Title,
		AccentColor: defaultAccentColor,
		TextColor:   defaultTextColor,
		FontFamily:  defaultFontFamily,
		FontSizePt:  defaultFontSizePt,
		SectionGap:  defaultSectionGap,
		Columns:     1,
	}
	if data.Template != nil {
		var layout struct {
			Columns int `json:"columns"`
		}
		if json.Unmarshal(data.Template.LayoutConfig, &layout) == nil && layout.Columns > 0 {
			view.Columns = layout.Columns
		}
	}
	if data.Theme != nil {
		applyTheme(&view, *data.Theme)
	}
	applyOverrides(&view, data.Design.CustomOverrides)

	doc := deep.Clone(data.Resume)
	doc.SortSections()
	for _, sec := range doc.Sections {
		if !sec.Visible {
			continue
		}
		sec.SortItems()
		view.Sections = append(view.Sections, sectionView{
			Key:     sec.SectionType.Key,
			Heading: sec.Heading,
			Entries: entriesFor(sec),
		})
	}
	return view
}

func applyTheme(view *pageView, theme api.PrintTheme) {
	var colors struct {
		Primary string `json:"primary"`
		Text    string `json:"text"`
	}
	if json.Unmarshal(theme.ColorScheme, &colors) == nil {
		if c := cssValue(colors.Primary); c != "" {
			view.AccentColor = c
		}
		if c := cssValue(colors.Text); c != "" {
			view.TextColor = c
		}
	}

	var typography struct {
		Font string  `json:"font"`
		Size float64 `json:"size"`
	}
	if json.Unmarshal(theme.Typography, &typography) == nil {
		if f := cssValue(typography.Font); f != "" {
			view.FontFamily = f
		}
		if typography.Size > 0 {
			view.FontSizePt = typography.Size
		}
	}

	var spacing struct {
		Section int `json:"section"`
	}
	if json.Unmarshal(theme.Spacing, &spacing) == nil && spacing.Section > 0 {
		view.SectionGap = spacing.Section
	}
}

// applyOverrides 应用用户的自定义覆盖项，只识别少数样式 key，其它 key 忽略。
func applyOverrides(view *pageView, overrides map[string]any) {
	if s, ok := overrides["accent"].(string); ok && cssValue(s) != "" {
		view.AccentColor = cssValue(s)
	}
	if s, ok := overrides["font"].(string); ok && cssValue(s) != "" {
		view.FontFamily = cssValue(s)
	}
	if n, ok := overrides["font_size"].(float64); ok && n > 0 {
		view.FontSizePt = n
	}
}

// cssValue 过滤掉可能跳出 CSS 声明的字符。
func cssValue(s string) template.CSS {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, ";{}<>\"'\\") {
		return ""
	}
	return template.CSS(s)
}

func entriesFor(sec resume.Section) []entryView {
	out := make([]entryView, 0, len(sec.Items))
	for _, it := range sec.Items {
		switch sec.SectionType.Key {
		case resume.SectionSummary:
			out = append(out, entryView{Text: resume.DecodeSummary(it.DataJSON).Text})
		case resume.SectionExperience:
			e := resume.DecodeExperience(it.DataJSON)
			end := e.EndDate
			if e.Current {
				end = "Present"
			}
			out = append(out, entryView{
				Title:    e.Role,
				Subtitle: joinNonEmpty(", ", e.Company, e.Location),
				Meta:     dateRange(e.StartDate, end),
				Bullets:  e.Description,
			})
		case resume.SectionEducation:
			e := resume.DecodeEducation(it.DataJSON)
			text := e.Honors
			if e.GPA != "" {
				text = joinNonEmpty(" · ", "GPA "+e.GPA, e.Honors)
			}
			out = append(out, entryView{
				Title:    e.School,
				Subtitle: joinNonEmpty(", ", e.Degree, e.Field),
				Meta:     dateRange(e.StartDate, e.EndDate),
				Text:     text,
			})
		case resume.SectionProjects:
			p := resume.DecodeProject(it.DataJSON)
			out = append(out, entryView{
				Title:    p.Name,
				Subtitle: p.Role,
				Meta:     p.URL,
				Text:     p.Description,
				Tags:     p.Technologies,
			})
		case resume.SectionSkills:
			for _, cat := range resume.DecodeSkills(it.DataJSON).Categories {
				if cat.Name == "" && len(cat.Skills) == 0 {
					continue
				}
				out = append(out, entryView{Title: cat.Name, Tags: cat.Skills})
			}
		default:
			g := resume.DecodeGeneric(it.DataJSON)
			out = append(out, entryView{Title: g.Title, Subtitle: g.Subtitle, Meta: g.Date, Text: g.Text})
		}
	}
	return out
}

func dateRange(start, end string) string {
	switch {
	case start == "" && end == "":
		return ""
	case start == "":
		return end
	case end == "":
		return start
	}
	return start + " - " + end
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
