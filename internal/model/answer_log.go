package model

// AnswerSource cites one retrieved chunk backing an answer.
type AnswerSource struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
	Snippet    string  `json:"snippet"`
}

type AnswerLog struct {
	ID         string         `json:"id"`
	OrgID      string         `json:"org_id"`
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	Confidence float64        `json:"confidence"`
	Sources    []AnswerSource `json:"sources"`
	TokensUsed int            `json:"tokens_used"`
	Ctime      int64          `json:"ctime"`
}
