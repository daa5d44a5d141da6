package jobqueue

import (
	"encoding/json"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeNotify           JobType = "notify"
	JobTypeRecomputeSummary JobType = "recompute_summary"
	JobTypeExportStatement  JobType = "export_statement"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// NotifyJobPayload carries one user notification.
type NotifyJobPayload struct {
	UserID      string `json:"user_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	ReferenceID string `json:"reference_id,omitempty"`
}

func (p NotifyJobPayload) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"user_id": p.UserID,
		"type":    p.Type,
		"title":   p.Title,
		"content": p.Content,
	}
	if p.ReferenceID != "" {
		m["reference_id"] = p.ReferenceID
	}
	return m
}

func NotifyJobPayloadFromMap(data map[string]interface{}) (*NotifyJobPayload, error) {
	return payloadFromMap[NotifyJobPayload](data)
}

// RecomputeSummaryJobPayload names the creator whose summary is rebuilt from the ledger.
type RecomputeSummaryJobPayload struct {
	CreatorID string `json:"creator_id"`
}

func (p RecomputeSummaryJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{"creator_id": p.CreatorID}
}

func RecomputeSummaryJobPayloadFromMap(data map[string]interface{}) (*RecomputeSummaryJobPayload, error) {
	return payloadFromMap[RecomputeSummaryJobPayload](data)
}

// ExportStatementJobPayload selects a creator's ledger month to export.
type ExportStatementJobPayload struct {
	CreatorID string `json:"creator_id"`
	Month     string `json:"month"` // YYYY-MM
}

func (p ExportStatementJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"creator_id": p.CreatorID,
		"month":      p.Month,
	}
}

func ExportStatementJobPayloadFromMap(data map[string]interface{}) (*ExportStatementJobPayload, error) {
	return payloadFromMap[ExportStatementJobPayload](data)
}

func payloadFromMap[T any](data map[string]interface{}) (*T, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload T
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
