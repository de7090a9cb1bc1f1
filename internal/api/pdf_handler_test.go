package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/tasks"
)

func TestExportPDFEnqueuesTask(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")

	w := env.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/pdf", doc.ID), token, nil, middleware.CorrelationIDHeader, "corr-1")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "task-1", decode[map[string]string](t, w)["task_id"])

	require.Len(t, env.queue.tasks, 1)
	task := env.queue.tasks[0]
	assert.Equal(t, tasks.TypePDFExport, task.Type())
	payload, err := tasks.ParsePDFExportPayload(task)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, payload.ResumeID)
	assert.Equal(t, doc.UserID, payload.UserID)
	assert.Equal(t, "corr-1", payload.CorrelationID)
}

func TestPDFLinkRequiresExport(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "My CV.v2")
	path := fmt.Sprintf("/v1/resumes/%d/pdf/link", doc.ID)

	w := env.do(http.MethodGet, path, token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	key := fmt.Sprintf("exports/%d/%d/abc.pdf", doc.UserID, doc.ID)
	require.NoError(t, env.db.Model(&database.Resume{}).Where("id = ?", doc.ID).Update("pdf_object_key", key).Error)

	w = env.do(http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.True(t, strings.HasSuffix(body["url"].(string), key))
	assert.EqualValues(t, 300, body["expires_in"])
}

func TestPrintDataRequiresInternalSecret(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")
	env.createSection(token, doc.ID, resume.SectionSummary)
	path := fmt.Sprintf("/v1/internal/resumes/%d/print", doc.ID)

	w := env.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(http.MethodGet, path, "", nil, middleware.InternalSecretHeader, "nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, path, "", nil, middleware.InternalSecretHeader, testInternalSecret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode[PrintData](t, w)
	assert.Equal(t, doc.ID, data.Resume.ID)
	require.Len(t, data.Resume.Sections, 1)
	require.NotNil(t, data.Template)
	assert.Equal(t, database.DefaultTemplateKey, data.Template.Key)
	assert.Empty(t, data.Warnings)
}

func TestPrintDataWarnsOnMissingTheme(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")

	require.NoError(t, env.db.Model(&database.ResumeDesign{}).Where("resume_id = ?", doc.ID).Update("theme_id", 777).Error)

	w := env.do(http.MethodGet, fmt.Sprintf("/v1/internal/resumes/%d/print", doc.ID), "", nil, middleware.InternalSecretHeader, testInternalSecret)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode[PrintData](t, w)
	require.Len(t, data.Warnings, 1)
	assert.Equal(t, errcode.ResourceMissing, data.Warnings[0].Code)
	assert.Equal(t, []string{"theme:777"}, data.Warnings[0].MissingKeys)
	assert.Nil(t, data.Theme)
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, path := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
