package api

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/database"
)

func (e *testEnv) createShare(token string, resumeID uint, body gin.H) shareResponse {
	e.t.Helper()
	w := e.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/share", resumeID), token, body)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[shareResponse](e.t, w)
}

func TestShareViewCountsAndHidesPrivate(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "Public CV")

	link := env.createShare(token, doc.ID, gin.H{"visibility": "public"})
	assert.Len(t, link.Slug, 16)
	assert.False(t, link.HasPassword)

	w := env.do(http.MethodGet, "/v1/share/"+link.Slug, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(http.MethodGet, "/v1/share/"+link.Slug, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stored database.SharingLink
	require.NoError(t, env.db.First(&stored, link.ID).Error)
	assert.Equal(t, 2, stored.ViewCount)

	w = env.do(http.MethodPatch, fmt.Sprintf("/v1/share/%d", link.ID), token, gin.H{"visibility": "private"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.do(http.MethodGet, "/v1/share/"+link.Slug, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSharePassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "Secret CV")

	link := env.createShare(token, doc.ID, gin.H{"visibility": "unlisted", "password": "hunter22"})
	assert.True(t, link.HasPassword)

	w := env.do(http.MethodGet, "/v1/share/"+link.Slug, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(http.MethodGet, "/v1/share/"+link.Slug, "", nil, sharePasswordHeader, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(http.MethodGet, "/v1/share/"+link.Slug, "", nil, sharePasswordHeader, "hunter22")
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/v1/share/"+link.Slug+"/verify", "", gin.H{"password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"valid":true}`, w.Body.String())

	w = env.do(http.MethodPatch, fmt.Sprintf("/v1/share/%d", link.ID), token, gin.H{"password": ""})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[shareResponse](t, w).HasPassword)

	w = env.do(http.MethodPost, fmt.Sprintf("/v1/resumes/%d/share", doc.ID), token, gin.H{"visibility": "public", "password": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShareExpired(t *testing.T) {
	env := newTestEnv(t)
	token := env.register("alice@example.com")
	doc := env.createResume(token, "CV")

	link := env.createShare(token, doc.ID, gin.H{"visibility": "public", "expires_at": time.Now().Add(-time.Hour)})
	w := env.do(http.MethodGet, "/v1/share/"+link.Slug, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShareManagementIsOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice@example.com")
	bob := env.register("bob@example.com")
	doc := env.createResume(alice, "CV")
	link := env.createShare(alice, doc.ID, gin.H{"visibility": "public"})

	w := env.do(http.MethodDelete, fmt.Sprintf("/v1/share/%d", link.ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, fmt.Sprintf("/v1/resumes/%d/share", doc.ID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]shareResponse](t, w), 1)

	w = env.do(http.MethodDelete, fmt.Sprintf("/v1/share/%d", link.ID), alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
