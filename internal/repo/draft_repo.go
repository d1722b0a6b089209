package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"

	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pkg/dbutil"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
)

const draftColumns = `id, org_id, title, content, summary, doc_type, topics, confidence,
	triage_level, reasoning, factor_breakdown, source_refs, status, is_update,
	original_document_id, tokens_used, approved_by, approved_at, ctime, mtime`

type DraftRepo struct {
	db *sql.DB
}

func NewDraftRepo(db *sql.DB) *DraftRepo {
	return &DraftRepo{db: db}
}

func (r *DraftRepo) Create(ctx context.Context, draft *model.DraftDocument) error {
	topics, err := json.Marshal(draft.Topics)
	if err != nil {
		return err
	}
	factors, err := json.Marshal(draft.FactorBreakdown)
	if err != nil {
		return err
	}
	refs, err := json.Marshal(draft.SourceRefs)
	if err != nil {
		return err
	}
	sqlStr := `
		INSERT INTO draft_documents (` + draftColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []interface{}{
		draft.ID, draft.OrgID, draft.Title, draft.Content, draft.Summary,
		draft.DocType, topics, draft.Confidence, draft.TriageLevel,
		draft.Reasoning, factors, refs, draft.Status, draft.IsUpdate,
		draft.OriginalDocumentID, draft.TokensUsed, draft.ApprovedBy,
		draft.ApprovedAt, draft.Ctime, draft.Mtime,
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *DraftRepo) GetByID(ctx context.Context, orgID, draftID string) (*model.DraftDocument, error) {
	sqlStr := `SELECT ` + draftColumns + ` FROM draft_documents WHERE id = ? AND org_id = ?`
	args := []interface{}{draftID, orgID}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanDraft(rows)
}

func (r *DraftRepo) List(ctx context.Context, orgID, status, triageLevel string, limit, offset uint) ([]model.DraftDocument, error) {
	sqlStr := `SELECT ` + draftColumns + ` FROM draft_documents WHERE org_id = ?`
	args := []interface{}{orgID}
	if status != "" {
		sqlStr += ` AND status = ?`
		args = append(args, status)
	}
	if triageLevel != "" {
		sqlStr += ` AND triage_level = ?`
		args = append(args, triageLevel)
	}
	sqlStr += ` ORDER BY ctime DESC`
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
	items := make([]model.DraftDocument, 0)
	for rows.Next() {
		item, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListPendingByIDs returns the subset of ids that are still pending with the
// given triage level, preserving no particular order.
func (r *DraftRepo) ListPendingByIDs(ctx context.Context, orgID string, ids []string, triageLevel string) ([]model.DraftDocument, error) {
	if len(ids) == 0 {
		return []model.DraftDocument{}, nil
	}
	sqlStr := `SELECT ` + draftColumns + ` FROM draft_documents
		WHERE org_id = ? AND status = ? AND id = ANY(?)`
	args := []interface{}{orgID, model.DraftStatusPending, pq.Array(ids)}
	if triageLevel != "" {
		sqlStr += ` AND triage_level = ?`
		args = append(args, triageLevel)
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.DraftDocument, 0)
	for rows.Next() {
		item, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanDraft(rows *sql.Rows) (*model.DraftDocument, error) {
	var item model.DraftDocument
	var topics, factors, refs []byte
	if err := rows.Scan(&item.ID, &item.OrgID, &item.Title, &item.Content, &item.Summary,
		&item.DocType, &topics, &item.Confidence, &item.TriageLevel, &item.Reasoning,
		&factors, &refs, &item.Status, &item.IsUpdate, &item.OriginalDocumentID,
		&item.TokensUsed, &item.ApprovedBy, &item.ApprovedAt, &item.Ctime, &item.Mtime); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(topics, &item.Topics); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(factors, &item.FactorBreakdown); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(refs, &item.SourceRefs); err != nil {
		return nil, err
	}
	return &item, nil
}
