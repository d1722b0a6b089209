package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/strata-kb/strata/internal/ai"
	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pipeline"
	"github.com/strata-kb/strata/internal/pkg/timeutil"
)

const (
	indexChunkTokens   = 500
	indexOverlapTokens = 50
	indexMinChunkSize  = 20
	maxDocEmbedChars   = 8000

	embedTaskDocument = "RETRIEVAL_DOCUMENT"
	embedTaskQuery    = "RETRIEVAL_QUERY"
)

type DocumentIndexStore interface {
	GetByID(ctx context.Context, orgID, docID string) (*model.Document, error)
	ListUnindexed(ctx context.Context, limit uint) ([]model.Document, error)
	MarkIndexed(ctx context.Context, orgID, docID, contentHash string, embedding []float32) error
}

type ChunkStore interface {
	ReplaceForDocument(ctx context.Context, orgID, docID string, chunks []model.EmbeddingChunk) error
}

// IndexerService produces per-chunk and whole-document embeddings for
// approved documents and swaps them into the search index.
type IndexerService struct {
	documents DocumentIndexStore
	chunks    ChunkStore
	embedder  ai.IEmbedder
	timeout   time.Duration
}

func NewIndexerService(documents DocumentIndexStore, chunks ChunkStore, embedder ai.IEmbedder, timeout time.Duration) *IndexerService {
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	return &IndexerService{documents: documents, chunks: chunks, embedder: embedder, timeout: timeout}
}

// EmbedDocument reindexes one document. The document must exist; an empty
// content body clears the chunk set and still counts as success.
func (s *IndexerService) EmbedDocument(ctx context.Context, orgID, docID string) error {
	doc, err := s.documents.GetByID(ctx, orgID, docID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", docID, err)
	}

	chunks := pipeline.ChunkText(doc.Content, pipeline.ChunkOptions{
		MaxTokens:          indexChunkTokens,
		OverlapTokens:      indexOverlapTokens,
		PreserveSentences:  true,
		PreserveParagraphs: true,
	})
	chunks = pipeline.MergeSmall(chunks, indexMinChunkSize)

	texts := make([]string, 0, len(chunks)+1)
	kept := make([]pipeline.Chunk, 0, len(chunks))
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Content) == "" {
			continue
		}
		texts = append(texts, chunk.Content)
		kept = append(kept, chunk)
	}
	texts = append(texts, docEmbedText(doc))

	embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
	vectors, err := s.embedder.EmbedBatch(embedCtx, texts, embedTaskDocument)
	cancel()
	if err != nil {
		return fmt.Errorf("embed document %s: %w", docID, err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embed document %s: expected %d vectors, got %d", docID, len(texts), len(vectors))
	}

	now := timeutil.NowUnix()
	rows := make([]model.EmbeddingChunk, 0, len(kept))
	for i, chunk := range kept {
		rows = append(rows, model.EmbeddingChunk{
			DocumentID: doc.ID,
			OrgID:      doc.OrgID,
			ChunkIndex: i,
			Content:    chunk.Content,
			TokenCount: chunk.TokenCount,
			Embedding:  vectors[i],
			Ctime:      now,
		})
	}
	if err := s.chunks.ReplaceForDocument(ctx, doc.OrgID, doc.ID, rows); err != nil {
		return fmt.Errorf("store chunks for %s: %w", docID, err)
	}
	docVector := vectors[len(vectors)-1]
	if err := s.documents.MarkIndexed(ctx, doc.OrgID, doc.ID, doc.ContentHash, docVector); err != nil {
		return fmt.Errorf("mark indexed %s: %w", docID, err)
	}
	return nil
}

// IndexPending embeds documents whose index is missing or stale, up to limit.
// Per-document failures are logged and skipped so one bad document cannot
// wedge the whole pass.
func (s *IndexerService) IndexPending(ctx context.Context, limit uint) (int, error) {
	docs, err := s.documents.ListUnindexed(ctx, limit)
	if err != nil {
		return 0, err
	}
	indexed := 0
	for _, doc := range docs {
		if err := s.EmbedDocument(ctx, doc.OrgID, doc.ID); err != nil {
			logutil.GetLogger(ctx).Warn("index document failed",
				zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		indexed++
	}
	return indexed, nil
}

func docEmbedText(doc *model.Document) string {
	text := doc.Title + "\n\n" + doc.Content
	if len(text) > maxDocEmbedChars {
		text = text[:maxDocEmbedChars]
	}
	return text
}
