package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/resume"
)

func (e *testEnv) createSection(token string, resumeID uint, typeKey string) resume.Section {
	e.t.Helper()
	w := e.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/sections", resumeID), token, gin.H{"section_type_id": e.sectionTypeID(typeKey)})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[resume.Section](e.t, w)
}

func (e *testEnv) createItem(token string, resumeID, sectionID uint, data string) resume.SectionItem {
	e.t.Helper()
	w := e.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/sections/%d/items", resumeID, sectionID), token,
		gin.H{"data_json": json.RawMessage(data)})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[resume.SectionItem](e.t, w)
}

func (e *testEnv) tree(token string, resumeID uint) resume.Resume {
	e.t.Helper()
	w := e.do(http.MethodGet, fmt.Sprintf("/v1/resumes/%d", resumeID), token, nil)
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	return decode[resume.Resume](e.t, w)
}

func sectionPositions(doc resume.Resume) map[uint]int {
	out := make(map[uint]int, len(doc.Sections))
	for _, s := range doc.Sections {
		out[s.ID] = s.Position
	}
	return out
}

func TestListSectionTypes(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/v1/section-types", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	types := decode[[]resume.SectionType](t, w)
	require.NotEmpty(t, types)
	singletons := map[string]bool{}
	for _, st := range types {
		singletons[st.Key] = st.IsSingleton
	}
	assert.True(t, singletons[resume.SectionSummary])
	assert.False(t, singletons[resume.SectionExperience])
}

func TestCreateSectionAppendsWithTypeName(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")

	first := env.createSection(token, doc.ID, resume.SectionSummary)
	second := env.createSection(token, doc.ID, resume.SectionExperience)

	assert.Equal(t, 1, first.Position)
	assert.Equal(t, 2, second.Position)
	assert.Equal(t, "Professional Summary", first.Heading)
	assert.True(t, second.Visible)
	assert.Equal(t, resume.SectionExperience, second.SectionType.Key)
}

func TestCreateSectionSingletonConflict(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")
	env.createSection(token, doc.ID, resume.SectionSkills)

	w := env.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/sections", doc.ID), token,
		gin.H{"section_type_id": env.sectionTypeID(resume.SectionSkills)})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 非 singleton 类型可以重复添加
	env.createSection(token, doc.ID, resume.SectionProjects)
	env.createSection(token, doc.ID, resume.SectionProjects)
}

func TestCreateSectionUnknownType(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")

	w := env.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/sections", doc.ID), token, gin.H{"section_type_id": 4242})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateSection(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")
	sec := env.createSection(token, doc.ID, resume.SectionExperience)

	w := env.do(http.MethodPatch, fmt.Sprintf("/v1/resumes/%d/sections/%d", doc.ID, sec.ID), token,
		gin.H{"heading": "Where I worked", "visible": false, "layout_config": gin.H{"columns": 2}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	updated := decode[resume.Section](t, w)
	assert.Equal(t, "Where I worked", updated.Heading)
	assert.False(t, updated.Visible)
	assert.JSONEq(t, `{"columns":2}`, string(updated.LayoutConfig))
}

func TestUpdateSectionClearsLayout(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")
	sec := env.createSection(token, doc.ID, resume.SectionExperience)
	path := fmt.Sprintf("/v1/resumes/%d/sections/%d", doc.ID, sec.ID)

	w := env.do(http.MethodPatch, path, token, gin.H{"layout_config": gin.H{"columns": 2}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPatch, path, token, gin.H{"clear_layout_config": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decode[resume.Section](t, w).LayoutConfig)

	got := env.tree(token, doc.ID)
	require.Len(t, got.Sections, 1)
	assert.Nil(t, got.Sections[0].LayoutConfig)
}

func TestDeleteSectionRenumbers(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")
	a := env.createSection(token, doc.ID, resume.SectionSummary)
	b := env.createSection(token, doc.ID, resume.SectionExperience)
	c := env.createSection(token, doc.ID, resume.SectionEducation)
	env.createItem(token, doc.ID, b.ID, `{"company":"Acme"}`)

	w := env.do(http.MethodDelete, fmt.Sprintf("/v1/resumes/%d/sections/%d", doc.ID, b.ID), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	got := env.tree(token, doc.ID)
	assert.Equal(t, map[uint]int{a.ID: 1, c.ID: 2}, sectionPositions(got))
}

func TestReorderSectionsIgnoresForeignIDs(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice@example.com")
	bob := env.register("bob@example.com")
	doc := env.createResume(alice, "CV")
	other := env.createResume(bob, "Other")
	a := env.createSection(alice, doc.ID, resume.SectionSummary)
	b := env.createSection(alice, doc.ID, resume.SectionExperience)
	foreign := env.createSection(bob, other.ID, resume.SectionSummary)

	w := env.do(http.MethodPut, fmt.Sprintf("/v1/resumes/%d/sections/reorder", doc.ID), alice, gin.H{
		"sections": []resume.PositionPair{{ID: a.ID, Position: 2}, {ID: b.ID, Position: 1}, {ID: foreign.ID, Position: 9}},
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	got := env.tree(alice, doc.ID)
	require.Len(t, got.Sections, 2)
	assert.Equal(t, b.ID, got.Sections[0].ID)
	assert.Equal(t, a.ID, got.Sections[1].ID)

	assert.Equal(t, 1, env.tree(bob, other.ID).Sections[0].Position)
}

func TestItemLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")
	sec := env.createSection(token, doc.ID, resume.SectionExperience)
	base := fmt.Sprintf("/v1/resumes/%d/sections/%d/items", doc.ID, sec.ID)

	first := env.createItem(token, doc.ID, sec.ID, `{"company":"Acme"}`)
	second := env.createItem(token, doc.ID, sec.ID, `{"company":"Globex"}`)
	third := env.createItem(token, doc.ID, sec.ID, `{"company":"Initech"}`)
	assert.Equal(t, []int{1, 2, 3}, []int{first.Position, second.Position, third.Position})

	w := env.do(http.MethodPost, base, token, gin.H{"data_json": json.RawMessage(`[1,2]`)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPatch, fmt.Sprintf("%s/%d", base, second.ID), token, gin.H{"data_json": gin.H{"company": "Globex Corp"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"company":"Globex Corp"}`, string(decode[resume.SectionItem](t, w).DataJSON))

	w = env.do(http.MethodDelete, fmt.Sprintf("%s/%d", base, first.ID), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodPut, base+"/reorder", token, gin.H{
		"items": []resume.PositionPair{{ID: third.ID, Position: 1}, {ID: second.ID, Position: 2}},
	})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	items := env.tree(token, doc.ID).Sections[0].Items
	require.Len(t, items, 2)
	assert.Equal(t, third.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)
	assert.Equal(t, 2, items[1].Position)

	w = env.do(http.MethodPatch, fmt.Sprintf("%s/%d", base, first.ID), token, gin.H{"data_json": gin.H{}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
