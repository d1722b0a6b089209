package repo

import (
	"context"
	"database/sql"

	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pkg/dbutil"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
)

type VersionRepo struct {
	db *sql.DB
}

func NewVersionRepo(db *sql.DB) *VersionRepo {
	return &VersionRepo{db: db}
}

func (r *VersionRepo) ListByDocument(ctx context.Context, orgID, docID string) ([]model.DocumentVersionSummary, error) {
	sqlStr := `
		SELECT id, document_id, version, title, changes, approved_by, approved_at
		FROM document_versions
		WHERE org_id = ? AND document_id = ?
		ORDER BY version DESC
	`
	args := []interface{}{orgID, docID}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.DocumentVersionSummary, 0)
	for rows.Next() {
		var item model.DocumentVersionSummary
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.Version, &item.Title,
			&item.Changes, &item.ApprovedBy, &item.ApprovedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *VersionRepo) GetByVersion(ctx context.Context, orgID, docID string, version int) (*model.DocumentVersion, error) {
	sqlStr := `
		SELECT id, org_id, document_id, version, title, content, changes, approved_by, approved_at, ctime
		FROM document_versions
		WHERE org_id = ? AND document_id = ? AND version = ?
	`
	args := []interface{}{orgID, docID, version}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var item model.DocumentVersion
	if err := rows.Scan(&item.ID, &item.OrgID, &item.DocumentID, &item.Version, &item.Title,
		&item.Content, &item.Changes, &item.ApprovedBy, &item.ApprovedAt, &item.Ctime); err != nil {
		return nil, err
	}
	return &item, nil
}
