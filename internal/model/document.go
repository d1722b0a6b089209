package model

// Document is a canonical approved knowledge-base entry. Version starts at 1
// and increments by exactly one on every approved update.
type Document struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"org_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Summary     string    `json:"summary"`
	Tags        []string  `json:"tags"`
	CategoryID  string    `json:"category_id,omitempty"`
	Version     int       `json:"version"`
	ApprovedBy  string    `json:"approved_by"`
	ApprovedAt  int64     `json:"approved_at"`
	Embedding   []float32 `json:"-"`
	ContentHash string    `json:"-"`
	Ctime       int64     `json:"ctime"`
	Mtime       int64     `json:"mtime"`
}
