package model

import "time"

// ExportStatus defines the lifecycle state of an export job.
type ExportStatus string

const (
	ExportPending ExportStatus = "pending"
	ExportDone    ExportStatus = "done"
	ExportFailed  ExportStatus = "failed"
)

// ExportJob is a durable work item for the CSV export worker. The API
// inserts the row and dispatches its id; the worker writes the file
// and flips the status.
type ExportJob struct {
	ID        int64        `gorm:"primaryKey" json:"id"`
	UserID    int64        `gorm:"not null;index" json:"user_id"`
	Status    ExportStatus `gorm:"size:16;not null;default:pending" json:"status"`
	FilePath  string       `gorm:"size:512" json:"file_path,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
