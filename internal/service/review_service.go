package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/strata-kb/strata/internal/model"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
	"github.com/strata-kb/strata/internal/pkg/timeutil"
	"github.com/strata-kb/strata/internal/repo"
)

const initialVersionChanges = "Initial version"

type DraftStore interface {
	GetByID(ctx context.Context, orgID, draftID string) (*model.DraftDocument, error)
	List(ctx context.Context, orgID, status, triageLevel string, limit, offset uint) ([]model.DraftDocument, error)
	ListPendingByIDs(ctx context.Context, orgID string, ids []string, triageLevel string) ([]model.DraftDocument, error)
}

type DocumentGetter interface {
	GetByID(ctx context.Context, orgID, docID string) (*model.Document, error)
}

type ReviewTxStore interface {
	Approve(ctx context.Context, params repo.ApproveParams) error
	Reject(ctx context.Context, draft *model.DraftDocument) error
}

// Categorizer resolves the category a document should land in. Failures are
// tolerated by the caller; approval never blocks on categorization.
type Categorizer interface {
	ResolveCategory(ctx context.Context, orgID string, doc *model.Document) (string, error)
}

// ReviewService is the draft approval state machine: pending drafts move to
// approved or rejected exactly once, and every approval writes the document
// and its version snapshot atomically.
type ReviewService struct {
	drafts      DraftStore
	documents   DocumentGetter
	store       ReviewTxStore
	categorizer Categorizer
}

func NewReviewService(drafts DraftStore, documents DocumentGetter, store ReviewTxStore, categorizer Categorizer) *ReviewService {
	return &ReviewService{drafts: drafts, documents: documents, store: store, categorizer: categorizer}
}

func (s *ReviewService) GetDraft(ctx context.Context, orgID, draftID string) (*model.DraftDocument, error) {
	return s.drafts.GetByID(ctx, orgID, draftID)
}

func (s *ReviewService) ListDrafts(ctx context.Context, orgID, status, triageLevel string, limit, offset uint) ([]model.DraftDocument, error) {
	return s.drafts.List(ctx, orgID, status, triageLevel, limit, offset)
}

// Approve moves a pending draft to approved. An edited content override, when
// supplied, replaces the draft content in the persisted document.
func (s *ReviewService) Approve(ctx context.Context, orgID, reviewerID, draftID, editedContent string) (*model.Document, error) {
	draft, err := s.drafts.GetByID(ctx, orgID, draftID)
	if err != nil {
		return nil, err
	}
	return s.approveDraft(ctx, draft, reviewerID, editedContent)
}

func (s *ReviewService) approveDraft(ctx context.Context, draft *model.DraftDocument, reviewerID, editedContent string) (*model.Document, error) {
	if draft.Status != model.DraftStatusPending {
		return nil, appErr.ErrConflict
	}
	content := draft.Content
	if editedContent != "" {
		content = editedContent
	}
	now := timeutil.NowUnix()

	var existing *model.Document
	if draft.IsUpdate && draft.OriginalDocumentID != "" {
		doc, err := s.documents.GetByID(ctx, draft.OrgID, draft.OriginalDocumentID)
		if err == nil {
			existing = doc
		} else if !errors.Is(err, appErr.ErrNotFound) {
			return nil, err
		}
		// A missing original degrades to creating a new document.
	}

	doc := &model.Document{
		OrgID:       draft.OrgID,
		Title:       draft.Title,
		Content:     content,
		Summary:     draft.Summary,
		Tags:        draft.Topics,
		Version:     1,
		ApprovedBy:  reviewerID,
		ApprovedAt:  now,
		ContentHash: hashContent(content),
		Ctime:       now,
		Mtime:       now,
	}
	changes := initialVersionChanges
	isUpdate := existing != nil
	if isUpdate {
		doc.ID = existing.ID
		doc.Ctime = existing.Ctime
		doc.Version = existing.Version + 1
		changes = "Updated from approved draft"
	} else {
		doc.ID = newID()
	}

	if s.categorizer != nil {
		categoryID, err := s.categorizer.ResolveCategory(ctx, draft.OrgID, doc)
		if err != nil {
			logutil.GetLogger(ctx).Warn("category suggestion failed, leaving document uncategorized",
				zap.String("draft_id", draft.ID), zap.Error(err))
		} else {
			doc.CategoryID = categoryID
		}
	}

	version := &model.DocumentVersion{
		ID:         newID(),
		OrgID:      draft.OrgID,
		DocumentID: doc.ID,
		Version:    doc.Version,
		Title:      doc.Title,
		Content:    doc.Content,
		Changes:    changes,
		ApprovedBy: reviewerID,
		ApprovedAt: now,
		Ctime:      now,
	}

	decided := *draft
	decided.ApprovedBy = reviewerID
	decided.ApprovedAt = now
	decided.Mtime = now
	if err := s.store.Approve(ctx, repo.ApproveParams{
		Draft:    &decided,
		Document: doc,
		Version:  version,
		IsUpdate: isUpdate,
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reject moves a pending draft to rejected. No document is created or touched.
func (s *ReviewService) Reject(ctx context.Context, orgID, reviewerID, draftID string) error {
	draft, err := s.drafts.GetByID(ctx, orgID, draftID)
	if err != nil {
		return err
	}
	if draft.Status != model.DraftStatusPending {
		return appErr.ErrConflict
	}
	decided := *draft
	decided.ApprovedBy = reviewerID
	decided.ApprovedAt = timeutil.NowUnix()
	decided.Mtime = decided.ApprovedAt
	return s.store.Reject(ctx, &decided)
}

// BatchApprove approves the subset of requested drafts that are pending with
// green triage. Ids that do not qualify are dropped silently; the returned
// slice reports which were honored.
func (s *ReviewService) BatchApprove(ctx context.Context, orgID, reviewerID string, draftIDs []string) ([]string, error) {
	eligible, err := s.drafts.ListPendingByIDs(ctx, orgID, draftIDs, "green")
	if err != nil {
		return nil, err
	}
	honored := make([]string, 0, len(eligible))
	for i := range eligible {
		draft := eligible[i]
		if _, err := s.approveDraft(ctx, &draft, reviewerID, ""); err != nil {
			if errors.Is(err, appErr.ErrConflict) {
				continue
			}
			logutil.GetLogger(ctx).Warn("batch approve item failed",
				zap.String("draft_id", draft.ID), zap.Error(err))
			continue
		}
		honored = append(honored, draft.ID)
	}
	return honored, nil
}

func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
