package model

const (
	IngestStatusPending   = "pending"
	IngestStatusRunning   = "running"
	IngestStatusCompleted = "completed"
	IngestStatusFailed    = "failed"
)

type IngestReport struct {
	Groups        int      `json:"groups"`
	DraftsCreated int      `json:"drafts_created"`
	Failed        int      `json:"failed"`
	Errors        []string `json:"errors,omitempty"`
}

type IngestJob struct {
	ID        string        `json:"id"`
	OrgID     string        `json:"org_id"`
	Source    string        `json:"source"`
	Status    string        `json:"status"`
	Processed int           `json:"processed"`
	Total     int           `json:"total"`
	Report    *IngestReport `json:"report,omitempty"`
	Error     string        `json:"error,omitempty"`
	Ctime     int64         `json:"ctime"`
	Mtime     int64         `json:"mtime"`
}

// IngestItem is a staged raw content item belonging to a job.
type IngestItem struct {
	ID         string     `json:"id"`
	JobID      string     `json:"job_id"`
	OrgID      string     `json:"org_id"`
	Position   int        `json:"position"`
	SourceType SourceType `json:"source_type"`
	SourceID   string     `json:"source_id"`
	Author     string     `json:"author,omitempty"`
	URL        string     `json:"url,omitempty"`
	Content    string     `json:"content"`
	Timestamp  int64      `json:"timestamp"`
	Ctime      int64      `json:"ctime"`
}
