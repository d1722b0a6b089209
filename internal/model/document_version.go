package model

// DocumentVersion is an append-only snapshot written on every approval.
type DocumentVersion struct {
	ID         string `json:"id"`
	OrgID      string `json:"org_id"`
	DocumentID string `json:"document_id"`
	Version    int    `json:"version"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Changes    string `json:"changes"`
	ApprovedBy string `json:"approved_by"`
	ApprovedAt int64  `json:"approved_at"`
	Ctime      int64  `json:"ctime"`
}

type DocumentVersionSummary struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Version    int    `json:"version"`
	Title      string `json:"title"`
	Changes    string `json:"changes"`
	ApprovedBy string `json:"approved_by"`
	ApprovedAt int64  `json:"approved_at"`
}
