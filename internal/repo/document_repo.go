package repo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pkg/dbutil"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
)

const documentColumns = `id, org_id, title, content, summary, tags, category_id,
	version, approved_by, approved_at, content_hash, ctime, mtime`

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) GetByID(ctx context.Context, orgID, docID string) (*model.Document, error) {
	sqlStr := `SELECT ` + documentColumns + ` FROM documents WHERE id = ? AND org_id = ?`
	args := []interface{}{docID, orgID}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanDocument(rows)
}

func (r *DocumentRepo) List(ctx context.Context, orgID, categoryID, query string, limit, offset uint) ([]model.Document, error) {
	sqlStr := `SELECT ` + documentColumns + ` FROM documents WHERE org_id = ?`
	args := []interface{}{orgID}
	if categoryID != "" {
		sqlStr += ` AND category_id = ?`
		args = append(args, categoryID)
	}
	if query != "" {
		sqlStr += ` AND (title ILIKE ? OR summary ILIKE ?)`
		like := "%" + query + "%"
		args = append(args, like, like)
	}
	sqlStr += ` ORDER BY mtime DESC`
	if limit > 0 {
		sqlStr += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Document, 0)
	for rows.Next() {
		item, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListUnindexed returns approved documents whose embedding is missing or whose
// content changed since the last index run.
func (r *DocumentRepo) ListUnindexed(ctx context.Context, limit uint) ([]model.Document, error) {
	sqlStr := `SELECT ` + documentColumns + ` FROM documents
		WHERE indexed_hash IS DISTINCT FROM content_hash
		ORDER BY mtime ASC LIMIT ?`
	args := []interface{}{limit}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Document, 0)
	for rows.Next() {
		item, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// MarkIndexed stores the document-level embedding and records which content
// hash it was computed from.
func (r *DocumentRepo) MarkIndexed(ctx context.Context, orgID, docID, contentHash string, embedding []float32) error {
	sqlStr := `UPDATE documents SET embedding = ?, indexed_hash = ? WHERE id = ? AND org_id = ?`
	args := []interface{}{pgvector.NewVector(embedding), contentHash, docID, orgID}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func scanDocument(rows *sql.Rows) (*model.Document, error) {
	var item model.Document
	var categoryID sql.NullString
	if err := rows.Scan(&item.ID, &item.OrgID, &item.Title, &item.Content, &item.Summary,
		pq.Array(&item.Tags), &categoryID, &item.Version, &item.ApprovedBy,
		&item.ApprovedAt, &item.ContentHash, &item.Ctime, &item.Mtime); err != nil {
		return nil, err
	}
	item.CategoryID = categoryID.String
	return &item, nil
}
