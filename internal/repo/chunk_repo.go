package repo

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pkg/dbutil"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceForDocument swaps the full chunk set for a document in one
// transaction so searches never see a half-indexed document.
func (r *ChunkRepo) ReplaceForDocument(ctx context.Context, orgID, docID string, chunks []model.EmbeddingChunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	sqlStr, args := dbutil.Finalize(
		`DELETE FROM embedding_chunks WHERE org_id = ? AND document_id = ?`,
		[]interface{}{orgID, docID},
	)
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	for _, chunk := range chunks {
		sqlStr, args := dbutil.Finalize(`
			INSERT INTO embedding_chunks (document_id, org_id, chunk_index, content, token_count, embedding, ctime)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, []interface{}{
			chunk.DocumentID, chunk.OrgID, chunk.ChunkIndex, chunk.Content,
			chunk.TokenCount, pgvector.NewVector(chunk.Embedding), chunk.Ctime,
		})
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Search returns the topK chunks most similar to the query vector within an
// org, filtered to similarity >= minSimilarity. Cosine distance via pgvector.
func (r *ChunkRepo) Search(ctx context.Context, orgID string, query []float32, topK int, minSimilarity float64) ([]model.ChunkMatch, error) {
	if topK <= 0 {
		topK = 5
	}
	sqlStr := `
		SELECT c.document_id, d.title, c.chunk_index, c.content,
			1 - (c.embedding <=> ?) AS similarity
		FROM embedding_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.org_id = ? AND 1 - (c.embedding <=> ?) >= ?
		ORDER BY c.embedding <=> ?
		LIMIT ?
	`
	vec := pgvector.NewVector(query)
	args := []interface{}{vec, orgID, vec, minSimilarity, vec, topK}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.ChunkMatch, 0)
	for rows.Next() {
		var item model.ChunkMatch
		if err := rows.Scan(&item.DocumentID, &item.Title, &item.ChunkIndex, &item.Content, &item.Similarity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *ChunkRepo) CountForDocument(ctx context.Context, orgID, docID string) (int, error) {
	sqlStr, args := dbutil.Finalize(
		`SELECT COUNT(*) FROM embedding_chunks WHERE org_id = ? AND document_id = ?`,
		[]interface{}{orgID, docID},
	)
	var count int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
