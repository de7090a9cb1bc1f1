package worker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/api"
	"resumeBuilder/internal/resume"
)

func TestBuildPageViewAppliesThemeThenOverrides(t *testing.T) {
	data := api.PrintData{
		Resume: resume.Resume{Title: "CV"},
		Design: resume.DesignConfig{CustomOverrides: map[string]any{"font_size": 12.5, "font": "Arial;}body{"}},
		Template: &api.PrintTemplate{
			Key:          "modern",
			LayoutConfig: json.RawMessage(`{"columns":2}`),
		},
		Theme: &api.PrintTheme{
			ColorScheme: json.RawMessage(`{"primary":"#1d4ed8","text":"#222222"}`),
			Typography:  json.RawMessage(`{"font":"Inter","size":11}`),
			Spacing:     json.RawMessage(`{"section":20}`),
		},
	}

	view := buildPageView(data)
	assert.Equal(t, 2, view.Columns)
	assert.EqualValues(t, "#1d4ed8", view.AccentColor)
	assert.EqualValues(t, "#222222", view.TextColor)
	assert.EqualValues(t, "Inter", view.FontFamily)
	assert.Equal(t, 12.5, view.FontSizePt)
	assert.Equal(t, 20, view.SectionGap)
}

func TestBuildPageViewDefaultsWithoutDesign(t *testing.T) {
	view := buildPageView(api.PrintData{Resume: resume.Resume{Title: "CV"}})
	assert.Equal(t, 1, view.Columns)
	assert.EqualValues(t, defaultAccentColor, view.AccentColor)
	assert.EqualValues(t, defaultFontFamily, view.FontFamily)
	assert.Empty(t, view.Sections)
}

func TestEntriesForKnownSectionTypes(t *testing.T) {
	edu := resume.Section{
		SectionType: resume.SectionType{Key: resume.SectionEducation},
		Items:       []resume.SectionItem{{DataJSON: json.RawMessage(`{"school":"MIT","degree":"BSc","field":"CS","gpa":"3.9","honors":"Cum laude","endDate":"2020"}`)}},
	}
	got := entriesFor(edu)
	require.Len(t, got, 1)
	assert.Equal(t, entryView{Title: "MIT", Subtitle: "BSc, CS", Meta: "2020", Text: "GPA 3.9 · Cum laude"}, got[0])

	skills := resume.Section{
		SectionType: resume.SectionType{Key: resume.SectionSkills},
		Items:       []resume.SectionItem{{DataJSON: json.RawMessage(`{"categories":[{"name":"Go","skills":["gin","gorm"]},{"name":"","skills":[]}]}`)}},
	}
	got = entriesFor(skills)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"gin", "gorm"}, got[0].Tags)

	custom := resume.Section{
		SectionType: resume.SectionType{Key: resume.SectionCustom},
		Items:       []resume.SectionItem{{DataJSON: json.RawMessage(`"not an object"`)}},
	}
	got = entriesFor(custom)
	require.Len(t, got, 1)
	assert.Equal(t, entryView{}, got[0])
}

func TestRenderResumeHTMLEscapesContent(t *testing.T) {
	data := api.PrintData{Resume: resume.Resume{
		Title: "CV",
		Sections: []resume.Section{{
			SectionType: resume.SectionType{Key: resume.SectionSummary},
			Heading:     "Summary",
			Visible:     true,
			Items:       []resume.SectionItem{{DataJSON: json.RawMessage(`{"text":"<script>alert(1)</script>"}`)}},
		}},
	}}
	html, err := renderResumeHTML(data)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestDateRange(t *testing.T) {
	assert.Equal(t, "", dateRange("", ""))
	assert.Equal(t, "2020", dateRange("2020", ""))
	assert.Equal(t, "2021", dateRange("", "2021"))
	assert.Equal(t, "2020 - 2021", dateRange("2020", "2021"))
}
