package model

// Progress sentinel recorded when an ingestion run fails.
const ProgressFailed = -1

const (
	IngestStatusProcessing = "processing"
	IngestStatusCompleted  = "completed"
	IngestStatusFailed     = "failed"
)

type IngestStatus struct {
	ResourceID string `json:"resource_id"`
	Progress   int    `json:"progress"`
	Status     string `json:"status"`
	Mtime      int64  `json:"-"`
}

// StatusForProgress derives the reported status from a raw progress value.
func StatusForProgress(progress int) string {
	switch {
	case progress == ProgressFailed:
		return IngestStatusFailed
	case progress >= 100:
		return IngestStatusCompleted
	default:
		return IngestStatusProcessing
	}
}
