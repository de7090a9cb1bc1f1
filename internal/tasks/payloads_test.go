package tasks

import (
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFExportTaskRoundTrip(t *testing.T) {
	task, err := NewPDFExportTask(9, 3, "corr-1")
	require.NoError(t, err)
	assert.Equal(t, TypePDFExport, task.Type())

	p, err := ParsePDFExportPayload(task)
	require.NoError(t, err)
	assert.Equal(t, PDFExportPayload{ResumeID: 9, UserID: 3, CorrelationID: "corr-1"}, p)
}

func TestParsePDFExportPayloadSkipsRetryOnMissingIDs(t *testing.T) {
	_, err := ParsePDFExportPayload(asynq.NewTask(TypePDFExport, []byte(`{"resume_id":1}`)))
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
