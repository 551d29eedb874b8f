package models

import "time"

// ExportFormat enumerates supported registration list export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportJobStatus tracks the lifecycle of an export job.
type ExportJobStatus string

const (
	ExportJobQueued    ExportJobStatus = "queued"
	ExportJobRunning   ExportJobStatus = "running"
	ExportJobCompleted ExportJobStatus = "completed"
	ExportJobFailed    ExportJobStatus = "failed"
)

// ExportJob describes an asynchronous registration list export.
type ExportJob struct {
	ID          string          `json:"id"`
	EventID     string          `json:"event_id"`
	Format      ExportFormat    `json:"format"`
	Status      ExportJobStatus `json:"status"`
	RequestedBy string          `json:"requested_by"`
	FilePath    string          `json:"-"`
	DownloadURL string          `json:"download_url,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
