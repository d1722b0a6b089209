package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strata-kb/strata/internal/model"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
)

type fakeIndexDocStore struct {
	docs        map[string]*model.Document
	indexedHash map[string]string
	docVectors  map[string][]float32
}

func newFakeIndexDocStore(docs ...*model.Document) *fakeIndexDocStore {
	s := &fakeIndexDocStore{
		docs:        map[string]*model.Document{},
		indexedHash: map[string]string{},
		docVectors:  map[string][]float32{},
	}
	for _, doc := range docs {
		s.docs[doc.ID] = doc
	}
	return s
}

func (s *fakeIndexDocStore) GetByID(ctx context.Context, orgID, docID string) (*model.Document, error) {
	doc, ok := s.docs[docID]
	if !ok || doc.OrgID != orgID {
		return nil, appErr.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeIndexDocStore) ListUnindexed(ctx context.Context, limit uint) ([]model.Document, error) {
	items := make([]model.Document, 0)
	for _, doc := range s.docs {
		if s.indexedHash[doc.ID] != doc.ContentHash {
			items = append(items, *doc)
		}
		if uint(len(items)) >= limit {
			break
		}
	}
	return items, nil
}

func (s *fakeIndexDocStore) MarkIndexed(ctx context.Context, orgID, docID, contentHash string, embedding []float32) error {
	if _, ok := s.docs[docID]; !ok {
		return appErr.ErrNotFound
	}
	s.indexedHash[docID] = contentHash
	s.docVectors[docID] = embedding
	return nil
}

type fakeChunkStore struct {
	chunks map[string][]model.EmbeddingChunk
}

func (s *fakeChunkStore) ReplaceForDocument(ctx context.Context, orgID, docID string, chunks []model.EmbeddingChunk) error {
	if s.chunks == nil {
		s.chunks = map[string][]model.EmbeddingChunk{}
	}
	s.chunks[docID] = chunks
	return nil
}

func approvedDoc(id, orgID, content string) *model.Document {
	return &model.Document{
		ID:          id,
		OrgID:       orgID,
		Title:       "Deploy process",
		Content:     content,
		Version:     1,
		ContentHash: hashContent(content),
	}
}

func TestEmbedDocument_MissingDocument(t *testing.T) {
	svc := NewIndexerService(newFakeIndexDocStore(), &fakeChunkStore{}, &fakeEmbedder{}, time.Second)
	err := svc.EmbedDocument(context.Background(), "org-1", "nope")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestEmbedDocument_ChunksAndDocVector(t *testing.T) {
	content := strings.Repeat("Every step of the rollout is written here in detail. ", 200)
	docs := newFakeIndexDocStore(approvedDoc("doc-1", "org-1", content))
	chunks := &fakeChunkStore{}
	svc := NewIndexerService(docs, chunks, &fakeEmbedder{}, time.Second)

	require.NoError(t, svc.EmbedDocument(context.Background(), "org-1", "doc-1"))
	stored := chunks.chunks["doc-1"]
	require.NotEmpty(t, stored)
	for i, chunk := range stored {
		require.Equal(t, i, chunk.ChunkIndex)
		require.Equal(t, "doc-1", chunk.DocumentID)
		require.Equal(t, "org-1", chunk.OrgID)
		require.NotEmpty(t, chunk.Embedding)
		require.Positive(t, chunk.TokenCount)
	}
	require.NotEmpty(t, docs.docVectors["doc-1"])
	require.Equal(t, docs.docs["doc-1"].ContentHash, docs.indexedHash["doc-1"])
}

func TestEmbedDocument_EmptyContentSucceeds(t *testing.T) {
	docs := newFakeIndexDocStore(approvedDoc("doc-1", "org-1", "   "))
	chunks := &fakeChunkStore{}
	svc := NewIndexerService(docs, chunks, &fakeEmbedder{}, time.Second)

	require.NoError(t, svc.EmbedDocument(context.Background(), "org-1", "doc-1"))
	require.Empty(t, chunks.chunks["doc-1"])
	// The document-level vector still lands so the job does not loop forever.
	require.NotEmpty(t, docs.docVectors["doc-1"])
}

func TestIndexPending_SkipsFailuresAndContinues(t *testing.T) {
	good := approvedDoc("doc-1", "org-1", "Deployment steps are documented here at length for everyone.")
	docs := newFakeIndexDocStore(good)
	svc := NewIndexerService(docs, &fakeChunkStore{}, &fakeEmbedder{}, time.Second)

	indexed, err := svc.IndexPending(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, indexed)

	// Already indexed documents are not picked up again.
	indexed, err = svc.IndexPending(context.Background(), 10)
	require.NoError(t, err)
	require.Zero(t, indexed)
}
