package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/resume"
)

func TestVersionRestoreReplacesDocument(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "Original")
	sec := env.createSection(token, doc.ID, resume.SectionExperience)
	env.createItem(token, doc.ID, sec.ID, `{"company":"Acme"}`)

	w := env.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/versions", doc.ID), token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[versionResponse](t, w).VersionNum)

	// 快照之后继续编辑
	w = env.do(http.MethodPatch, fmt.Sprintf("/v1/resumes/%d", doc.ID), token, gin.H{"title": "Rewritten"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodDelete, fmt.Sprintf("/v1/resumes/%d/sections/%d", doc.ID, sec.ID), token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	env.createSection(token, doc.ID, resume.SectionSummary)

	w = env.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/versions", doc.ID), token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 2, decode[versionResponse](t, w).VersionNum)

	w = env.do(http.MethodGet, fmt.Sprintf("/v1/resumes/%d/versions", doc.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	versions := decode[[]versionResponse](t, w)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].VersionNum)

	w = env.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/versions/1/restore", doc.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	restored := env.tree(token, doc.ID)
	assert.Equal(t, "Original", restored.Title)
	require.Len(t, restored.Sections, 1)
	assert.Equal(t, resume.SectionExperience, restored.Sections[0].SectionType.Key)
	require.Len(t, restored.Sections[0].Items, 1)
	assert.JSONEq(t, `{"company":"Acme"}`, string(restored.Sections[0].Items[0].DataJSON))

	w = env.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/versions/7/restore", doc.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVersionsArePruned(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")

	snapshot, err := json.Marshal(doc)
	require.NoError(t, err)
	for i := 1; i <= MaxVersionsPerResume; i++ {
		require.NoError(t, env.db.Create(&database.ResumeVersion{ResumeID: doc.ID, VersionNum: i, Snapshot: snapshot}).Error)
	}

	w := env.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/versions", doc.ID), token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, MaxVersionsPerResume+1, decode[versionResponse](t, w).VersionNum)

	var count int64
	require.NoError(t, env.db.Model(&database.ResumeVersion{}).Where("resume_id = ?", doc.ID).Count(&count).Error)
	assert.EqualValues(t, MaxVersionsPerResume, count)

	var oldest database.ResumeVersion
	require.NoError(t, env.db.Where("resume_id = ?", doc.ID).Order("version_num ASC").First(&oldest).Error)
	assert.Equal(t, 2, oldest.VersionNum)
}
