package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/resume"
)

func (e *testEnv) template(key string) database.Template {
	e.t.Helper()
	var tpl database.Template
	require.NoError(e.t, e.db.Preload("Themes").Where(&database.Template{Key: key}).First(&tpl).Error)
	return tpl
}

func TestListTemplates(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/v1/templates", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	list := decode[[]templateResponse](t, w)
	require.Len(t, list, 3)
	assert.NotEmpty(t, list[0].Themes)

	w = env.do(http.MethodGet, fmt.Sprintf("/v1/templates/%d", list[1].ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, list[1].Key, decode[templateResponse](t, w).Key)

	w = env.do(http.MethodGet, "/v1/templates/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatchDesignMergesOverrides(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")
	path := fmt.Sprintf("/v1/resumes/%d/design", doc.ID)

	w := env.do(http.MethodPatch, path, token, gin.H{"custom_overrides": gin.H{"accent": "#ff0000", "font": "Inter"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPatch, path, token, gin.H{"custom_overrides": gin.H{"font": nil, "margin": 12}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cfg := decode[resume.DesignConfig](t, w)
	assert.Equal(t, map[string]any{"accent": "#ff0000", "margin": float64(12)}, cfg.CustomOverrides)
}

func TestPatchDesignTemplateChangeClearsTheme(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	modern := env.template("modern")
	classic := env.template("classic")

	w := env.do(http.MethodPost, "/v1/resumes", token, gin.H{"title": "CV", "template_id": modern.ID, "theme_id": modern.Themes[0].ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decode[resume.Resume](t, w)
	require.NotNil(t, doc.Template.ThemeID)

	path := fmt.Sprintf("/v1/resumes/%d/design", doc.ID)
	w = env.do(http.MethodPatch, path, token, gin.H{"template_id": classic.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cfg := decode[resume.DesignConfig](t, w)
	assert.Equal(t, classic.ID, cfg.TemplateID)
	assert.Nil(t, cfg.ThemeID)

	w = env.do(http.MethodPatch, path, token, gin.H{"theme_id": modern.Themes[0].ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatchDesignClearTheme(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	modern := env.template("modern")

	w := env.do(http.MethodPost, "/v1/resumes", token, gin.H{"title": "CV", "template_id": modern.ID, "theme_id": modern.Themes[0].ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decode[resume.Resume](t, w)
	require.NotNil(t, doc.Template.ThemeID)

	w = env.do(http.MethodPatch, fmt.Sprintf("/v1/resumes/%d/design", doc.ID), token, gin.H{"clear_theme": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cfg := decode[resume.DesignConfig](t, w)
	assert.Equal(t, modern.ID, cfg.TemplateID)
	assert.Nil(t, cfg.ThemeID)

	got := env.tree(token, doc.ID)
	require.NotNil(t, got.Template)
	assert.Nil(t, got.Template.ThemeID)
}

func TestApplyTemplateResetsOverrides(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")
	minimal := env.template("minimal")

	w := env.do(http.MethodPatch, fmt.Sprintf("/v1/resumes/%d/design", doc.ID), token, gin.H{"custom_overrides": gin.H{"accent": "red"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/template", doc.ID), token, gin.H{"template_id": minimal.ID, "theme_id": minimal.Themes[0].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := env.tree(token, doc.ID)
	require.NotNil(t, got.Template)
	assert.Equal(t, minimal.ID, got.Template.TemplateID)
	assert.Empty(t, got.Template.CustomOverrides)
}
