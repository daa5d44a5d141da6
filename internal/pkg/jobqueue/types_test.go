package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobType(t *testing.T) {
	assert.Equal(t, "notify", string(JobTypeNotify))
	assert.Equal(t, "recompute_summary", string(JobTypeRecomputeSummary))
	assert.Equal(t, "export_statement", string(JobTypeExportStatement))
}

func TestJob_IsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		retries  int
		max      int
		expected bool
	}{
		{"failed with retries left", JobStatusFailed, 1, 3, true},
		{"failed at limit", JobStatusFailed, 3, 3, false},
		{"pending", JobStatusPending, 0, 3, false},
		{"completed", JobStatusCompleted, 0, 3, false},
		{"no retries allowed", JobStatusFailed, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{Status: tt.status, RetryCount: tt.retries, MaxRetries: tt.max}
			assert.Equal(t, tt.expected, job.IsRetryable())
		})
	}
}

func TestJob_StatusTransitions(t *testing.T) {
	job := &Job{MaxRetries: 3}
	before := time.Now()

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)
	assert.False(t, job.UpdatedAt.Before(before))

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}

func TestExportStatementPayloadFromMap(t *testing.T) {
	// Payloads come back from Redis as generic JSON maps.
	p, err := ExportStatementJobPayloadFromMap(map[string]interface{}{"creator_id": "cr_1", "month": "2026-03"})
	require.NoError(t, err)
	assert.Equal(t, "cr_1", p.CreatorID)
	assert.Equal(t, "2026-03", p.Month)

	_, err = RecomputeSummaryJobPayloadFromMap(map[string]interface{}{"creator_id": 12})
	assert.Error(t, err)
}
