package model

const (
	DraftStatusPending  = "pending"
	DraftStatusApproved = "approved"
	DraftStatusRejected = "rejected"
)

type DraftDocument struct {
	ID                 string             `json:"id"`
	OrgID              string             `json:"org_id"`
	Title              string             `json:"title"`
	Content            string             `json:"content"`
	Summary            string             `json:"summary"`
	DocType            string             `json:"doc_type"`
	Topics             []string           `json:"topics"`
	Confidence         float64            `json:"confidence"`
	TriageLevel        string             `json:"triage_level"`
	Reasoning          string             `json:"reasoning"`
	FactorBreakdown    map[string]float64 `json:"factor_breakdown"`
	SourceRefs         []SourceReference  `json:"source_refs"`
	Status             string             `json:"status"`
	IsUpdate           bool               `json:"is_update"`
	OriginalDocumentID string             `json:"original_document_id,omitempty"`
	TokensUsed         int                `json:"tokens_used"`
	ApprovedBy         string             `json:"approved_by,omitempty"`
	ApprovedAt         int64              `json:"approved_at,omitempty"`
	Ctime              int64              `json:"ctime"`
	Mtime              int64              `json:"mtime"`
}
