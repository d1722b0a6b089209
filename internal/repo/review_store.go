package repo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pkg/dbutil"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
)

// ReviewStore executes review decisions atomically: the draft status flip, the
// document mutation, and the version snapshot either all land or none do.
type ReviewStore struct {
	db *sql.DB
}

func NewReviewStore(db *sql.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

type ApproveParams struct {
	Draft    *model.DraftDocument
	Document *model.Document
	Version  *model.DocumentVersion
	IsUpdate bool
}

// Approve flips the draft to approved, creates or updates the document, and
// appends the version row in one transaction. A draft that is no longer
// pending, or a document that moved underneath an update, yields ErrConflict.
func (s *ReviewStore) Approve(ctx context.Context, params ApproveParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := casDraftStatus(ctx, tx, params.Draft, model.DraftStatusApproved); err != nil {
		return err
	}

	doc := params.Document
	if params.IsUpdate {
		sqlStr, args := dbutil.Finalize(`
			UPDATE documents
			SET title = ?, content = ?, summary = ?, tags = ?, category_id = ?,
				version = ?, approved_by = ?, approved_at = ?, content_hash = ?, mtime = ?
			WHERE id = ? AND org_id = ? AND version = ?
		`, []interface{}{
			doc.Title, doc.Content, doc.Summary, pq.Array(doc.Tags), nullable(doc.CategoryID),
			doc.Version, doc.ApprovedBy, doc.ApprovedAt, doc.ContentHash, doc.Mtime,
			doc.ID, doc.OrgID, doc.Version - 1,
		})
		res, err := tx.ExecContext(ctx, sqlStr, args...)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return appErr.ErrConflict
		}
	} else {
		sqlStr, args := dbutil.Finalize(`
			INSERT INTO documents (id, org_id, title, content, summary, tags, category_id,
				version, approved_by, approved_at, content_hash, ctime, mtime)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, []interface{}{
			doc.ID, doc.OrgID, doc.Title, doc.Content, doc.Summary, pq.Array(doc.Tags),
			nullable(doc.CategoryID), doc.Version, doc.ApprovedBy, doc.ApprovedAt,
			doc.ContentHash, doc.Ctime, doc.Mtime,
		})
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return err
		}
	}

	ver := params.Version
	sqlStr, args := dbutil.Finalize(`
		INSERT INTO document_versions (id, org_id, document_id, version, title, content,
			changes, approved_by, approved_at, ctime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, []interface{}{
		ver.ID, ver.OrgID, ver.DocumentID, ver.Version, ver.Title, ver.Content,
		ver.Changes, ver.ApprovedBy, ver.ApprovedAt, ver.Ctime,
	})
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	return tx.Commit()
}

// Reject flips a pending draft to rejected. Terminal drafts yield ErrConflict.
func (s *ReviewStore) Reject(ctx context.Context, draft *model.DraftDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := casDraftStatus(ctx, tx, draft, model.DraftStatusRejected); err != nil {
		return err
	}
	return tx.Commit()
}

func casDraftStatus(ctx context.Context, tx *sql.Tx, draft *model.DraftDocument, to string) error {
	sqlStr, args := dbutil.Finalize(`
		UPDATE draft_documents
		SET status = ?, approved_by = ?, approved_at = ?, mtime = ?
		WHERE id = ? AND org_id = ? AND status = ?
	`, []interface{}{
		to, draft.ApprovedBy, draft.ApprovedAt, draft.Mtime,
		draft.ID, draft.OrgID, model.DraftStatusPending,
	})
	res, err := tx.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrConflict
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
