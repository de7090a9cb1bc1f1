package storage

import (
	"errors"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestPDFObjectKeyIsUnderResumePrefix(t *testing.T) {
	key := PDFObjectKey(3, 9)

	assert.Equal(t, "exports/3/9/", ResumePrefix(3, 9))
	assert.True(t, strings.HasPrefix(key, "exports/3/9/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.NotEqual(t, key, PDFObjectKey(3, 9))
}

func TestDownloadFilename(t *testing.T) {
	assert.Equal(t, "Jane_Doe_CV.pdf", DownloadFilename("Jane Doe CV"))
	assert.Equal(t, "resume.pdf", DownloadFilename("  ///  "))
}

func TestIsNoSuchKey(t *testing.T) {
	assert.False(t, IsNoSuchKey(nil))
	assert.True(t, IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, IsNoSuchBucket(minio.ErrorResponse{Code: "NoSuchBucket"}))
	assert.False(t, IsNoSuchBucket(errors.New("timeout")))
}
