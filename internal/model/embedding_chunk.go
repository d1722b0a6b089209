package model

// EmbeddingChunk is one embedded slice of an approved document. The full set
// for a document is replaced whenever its content changes.
type EmbeddingChunk struct {
	DocumentID string    `json:"document_id"`
	OrgID      string    `json:"org_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	Embedding  []float32 `json:"-"`
	Ctime      int64     `json:"ctime"`
}

// ChunkMatch is a similarity-search hit.
type ChunkMatch struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
}
