package resume

import (
	"encoding/json"
	"testing"
	"time"

	deep "github.com/brunoga/deep/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestResumeCloneDoesNotShareMemory(t *testing.T) {
	theme := uint(3)
	orig := Resume{
		ID:    1,
		Title: "Backend",
		Sections: []Section{{
			ID:           10,
			Heading:      "Experience",
			Position:     1,
			LayoutConfig: json.RawMessage(`{"columns":1}`),
			Items: []SectionItem{
				{ID: 100, Position: 1, DataJSON: json.RawMessage(`{"company":"Acme"}`)},
			},
		}},
		Template: &DesignConfig{TemplateID: 2, ThemeID: &theme, CustomOverrides: map[string]any{
			"colors": map[string]any{"primary": "#000"},
		}},
		UpdatedAt: time.Now(),
	}

	cp := deep.Clone(orig)
	assert.True(t, cp.UpdatedAt.Equal(orig.UpdatedAt))
	assert.Same(t, orig.UpdatedAt.Location(), cp.UpdatedAt.Location())

	cp.Sections[0].Heading = "Work"
	cp.Sections[0].Items[0].DataJSON[2] = 'X'
	cp.Sections[0].LayoutConfig[2] = 'X'
	*cp.Template.ThemeID = 9
	cp.Template.CustomOverrides["colors"].(map[string]any)["primary"] = "#fff"

	assert.Equal(t, "Experience", orig.Sections[0].Heading)
	assert.JSONEq(t, `{"company":"Acme"}`, string(orig.Sections[0].Items[0].DataJSON))
	assert.JSONEq(t, `{"columns":1}`, string(orig.Sections[0].LayoutConfig))
	assert.Equal(t, uint(3), *orig.Template.ThemeID)
	assert.Equal(t, "#000", orig.Template.CustomOverrides["colors"].(map[string]any)["primary"])
}

func TestSectionApplyReportsChanges(t *testing.T) {
	s := Section{Heading: "Skills", Visible: true}

	assert.False(t, s.Apply(SectionPatch{Heading: ptr("Skills")}))
	assert.True(t, s.Apply(SectionPatch{Visible: ptr(false)}))
	assert.False(t, s.Visible)
	assert.True(t, s.Apply(SectionPatch{LayoutConfig: json.RawMessage(`{"a": 1}`)}))
	assert.False(t, s.Apply(SectionPatch{LayoutConfig: json.RawMessage(`{"a":1}`)}))
}

func TestDesignApplyMergesOverridesSparsely(t *testing.T) {
	d := DesignConfig{TemplateID: 1, CustomOverrides: map[string]any{"font": "Inter", "accent": "#f00"}}

	changed := d.Apply(DesignPatch{CustomOverrides: map[string]any{"accent": nil, "spacing": "compact"}})

	require.True(t, changed)
	assert.Equal(t, map[string]any{"font": "Inter", "spacing": "compact"}, d.CustomOverrides)
	assert.False(t, d.Apply(DesignPatch{CustomOverrides: map[string]any{"missing": nil}}))
	assert.True(t, d.Apply(DesignPatch{ThemeID: ptr(uint(4))}))
	assert.False(t, d.Apply(DesignPatch{ThemeID: ptr(uint(4))}))
}

func TestPatchesCanClearOptionalFields(t *testing.T) {
	d := DesignConfig{TemplateID: 1, ThemeID: ptr(uint(4))}
	assert.False(t, DesignPatch{ClearTheme: true}.IsEmpty())
	assert.True(t, d.Apply(DesignPatch{ClearTheme: true}))
	assert.Nil(t, d.ThemeID)
	assert.False(t, d.Apply(DesignPatch{ClearTheme: true}))
	assert.True(t, d.Apply(DesignPatch{ThemeID: ptr(uint(6)), ClearTheme: true}))
	assert.Equal(t, uint(6), *d.ThemeID)

	s := Section{LayoutConfig: json.RawMessage(`{"columns":2}`)}
	assert.False(t, SectionPatch{ClearLayoutConfig: true}.IsEmpty())
	assert.True(t, s.Apply(SectionPatch{ClearLayoutConfig: true}))
	assert.Nil(t, s.LayoutConfig)
	assert.False(t, s.Apply(SectionPatch{ClearLayoutConfig: true}))
}

func TestDesignEqualTreatsNumbersByValue(t *testing.T) {
	a := DesignConfig{TemplateID: 1, CustomOverrides: map[string]any{"size": float64(12)}}
	b := DesignConfig{TemplateID: 1, CustomOverrides: map[string]any{"size": 12}}
	assert.True(t, a.Equal(b))

	b.CustomOverrides["size"] = 13
	assert.False(t, a.Equal(b))
}

func TestSortSectionsIsStable(t *testing.T) {
	r := Resume{Sections: []Section{{ID: 1, Position: 2}, {ID: 2, Position: 1}, {ID: 3, Position: 2}}}
	r.SortSections()

	ids := []uint{r.Sections[0].ID, r.Sections[1].ID, r.Sections[2].ID}
	assert.Equal(t, []uint{2, 1, 3}, ids)
	assert.Equal(t, 2, r.SectionIndex(3))
	assert.Equal(t, -1, r.SectionIndex(42))
}

func TestDecodersTolerateMalformedPayloads(t *testing.T) {
	exp := DecodeExperience(json.RawMessage(`{"company": 7, "description": "single line", "current": "true"}`))
	assert.Equal(t, "7", exp.Company)
	assert.Equal(t, "", exp.Role)
	assert.Equal(t, []string{"single line"}, exp.Description)
	assert.True(t, exp.Current)

	empty := DecodeExperience(json.RawMessage(`not json`))
	assert.Equal(t, "", empty.Company)
	assert.Equal(t, []string{}, empty.Description)

	proj := DecodeProject(nil)
	assert.Equal(t, []string{}, proj.Technologies)

	skills := DecodeSkills(json.RawMessage(`{"categories":[{"name":"Go","skills":["gin",3,"gorm"]}, "junk"]}`))
	require.Len(t, skills.Categories, 1)
	assert.Equal(t, "Go", skills.Categories[0].Name)
	assert.Equal(t, []string{"gin", "gorm"}, skills.Categories[0].Skills)

	assert.Equal(t, "", DecodeSummary(json.RawMessage(`[]`)).Text)
	assert.Equal(t, "hello", DecodeSummary(json.RawMessage(`{"text":"hello"}`)).Text)

	edu := DecodeEducation(json.RawMessage(`{"school":"MIT","gpa":3.9}`))
	assert.Equal(t, "MIT", edu.School)
	assert.Equal(t, "3.9", edu.GPA)

	gen := DecodeGeneric(json.RawMessage(`{"name":"AWS SA","issuer":"Amazon"}`))
	assert.Equal(t, "AWS SA", gen.Title)
	assert.Equal(t, "Amazon", gen.Subtitle)
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusArchived.Valid())
	assert.False(t, Status("deleted").Valid())
}
