package repo

import (
	"context"
	"database/sql"

	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pkg/dbutil"
)

const ingestItemColumns = `id, job_id, org_id, position, source_type, source_id, author, url, content, timestamp, ctime`

type IngestItemRepo struct {
	db *sql.DB
}

func NewIngestItemRepo(db *sql.DB) *IngestItemRepo {
	return &IngestItemRepo{db: db}
}

func (r *IngestItemRepo) BatchCreate(ctx context.Context, items []model.IngestItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, item := range items {
		sqlStr, args := dbutil.Finalize(`
			INSERT INTO ingest_items (`+ingestItemColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, []interface{}{
			item.ID, item.JobID, item.OrgID, item.Position, item.SourceType,
			item.SourceID, item.Author, item.URL, item.Content, item.Timestamp, item.Ctime,
		})
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *IngestItemRepo) ListByJob(ctx context.Context, jobID string) ([]model.IngestItem, error) {
	sqlStr := `SELECT ` + ingestItemColumns + ` FROM ingest_items WHERE job_id = ? ORDER BY position ASC`
	args := []interface{}{jobID}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.IngestItem, 0)
	for rows.Next() {
		var item model.IngestItem
		if err := rows.Scan(&item.ID, &item.JobID, &item.OrgID, &item.Position,
			&item.SourceType, &item.SourceID, &item.Author, &item.URL,
			&item.Content, &item.Timestamp, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteByJob removes staged items once a job has finished; the report and
// resulting drafts carry everything worth keeping.
func (r *IngestItemRepo) DeleteByJob(ctx context.Context, jobID string) error {
	sqlStr, args := dbutil.Finalize(`DELETE FROM ingest_items WHERE job_id = ?`, []interface{}{jobID})
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
