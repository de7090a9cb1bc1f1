package api

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/resume"
)

func (e *testEnv) createResume(token, title string) resume.Resume {
	e.t.Helper()
	w := e.do(http.MethodPost, "/v1/resumes", token, gin.H{"title": title})
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[resume.Resume](e.t, w)
}

func TestCreateResumeUsesDefaultTemplate(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")

	doc := env.createResume(token, "Senior Engineer")
	assert.NotZero(t, doc.ID)
	assert.Equal(t, resume.StatusDraft, doc.Status)
	assert.True(t, strings.HasPrefix(doc.Slug, "senior-engineer-"), doc.Slug)
	assert.Empty(t, doc.Sections)
	require.NotNil(t, doc.Template)
	assert.NotZero(t, doc.Template.TemplateID)
	assert.Empty(t, doc.Template.CustomOverrides)
}

func TestCreateResumeRejectsUnknownTemplate(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")

	w := env.do(http.MethodPost, "/v1/resumes", token, gin.H{"title": "CV", "template_id": 9999})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateResumeLimit(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")

	for i := 0; i < 5; i++ {
		env.createResume(token, fmt.Sprintf("CV %d", i))
	}
	w := env.do(http.MethodPost, "/v1/resumes", token, gin.H{"title": "one too many"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListResumesPaginates(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	for i := 0; i < 3; i++ {
		env.createResume(token, fmt.Sprintf("CV %d", i))
	}

	w := env.do(http.MethodGet, "/v1/resumes?page=2&limit=2", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[resumeListResponse](t, w)
	assert.EqualValues(t, 3, list.Total)
	assert.Equal(t, 2, list.Page)
	assert.Equal(t, 2, list.Limit)
	assert.Len(t, list.Items, 1)
}

func TestResumeIsScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice@example.com")
	bob := env.register("bob@example.com")
	doc := env.createResume(alice, "Alice CV")

	w := env.do(http.MethodGet, fmt.Sprintf("/v1/resumes/%d", doc.ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/v1/resumes/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateResumeTitleRegeneratesSlug(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "First")

	w := env.do(http.MethodPatch, fmt.Sprintf("/v1/resumes/%d", doc.ID), token, gin.H{"title": "Second Draft", "status": "published"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[resume.Resume](t, w)
	assert.Equal(t, "Second Draft", updated.Title)
	assert.Equal(t, resume.StatusPublished, updated.Status)
	assert.True(t, strings.HasPrefix(updated.Slug, "second-draft-"), updated.Slug)

	w = env.do(http.MethodPatch, fmt.Sprintf("/v1/resumes/%d", doc.ID), token, gin.H{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteResumeRemovesExports(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "Gone")

	w := env.do(http.MethodDelete, fmt.Sprintf("/v1/resumes/%d", doc.ID), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{fmt.Sprintf("exports/%d/%d/", doc.UserID, doc.ID)}, env.storage.prefixes)

	w = env.do(http.MethodGet, fmt.Sprintf("/v1/resumes/%d", doc.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
