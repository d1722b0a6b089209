package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-kb/strata/internal/model"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
	"github.com/strata-kb/strata/internal/repo"
)

type fakeDraftStore struct {
	drafts map[string]*model.DraftDocument
}

func newFakeDraftStore(drafts ...*model.DraftDocument) *fakeDraftStore {
	s := &fakeDraftStore{drafts: map[string]*model.DraftDocument{}}
	for _, draft := range drafts {
		s.drafts[draft.ID] = draft
	}
	return s
}

func (s *fakeDraftStore) GetByID(ctx context.Context, orgID, draftID string) (*model.DraftDocument, error) {
	draft, ok := s.drafts[draftID]
	if !ok || draft.OrgID != orgID {
		return nil, appErr.ErrNotFound
	}
	copied := *draft
	return &copied, nil
}

func (s *fakeDraftStore) List(ctx context.Context, orgID, status, triageLevel string, limit, offset uint) ([]model.DraftDocument, error) {
	items := make([]model.DraftDocument, 0)
	for _, draft := range s.drafts {
		if draft.OrgID != orgID {
			continue
		}
		if status != "" && draft.Status != status {
			continue
		}
		if triageLevel != "" && draft.TriageLevel != triageLevel {
			continue
		}
		items = append(items, *draft)
	}
	return items, nil
}

func (s *fakeDraftStore) ListPendingByIDs(ctx context.Context, orgID string, ids []string, triageLevel string) ([]model.DraftDocument, error) {
	items := make([]model.DraftDocument, 0)
	for _, id := range ids {
		draft, ok := s.drafts[id]
		if !ok || draft.OrgID != orgID || draft.Status != model.DraftStatusPending {
			continue
		}
		if triageLevel != "" && draft.TriageLevel != triageLevel {
			continue
		}
		items = append(items, *draft)
	}
	return items, nil
}

type fakeDocumentGetter struct {
	docs map[string]*model.Document
}

func (s *fakeDocumentGetter) GetByID(ctx context.Context, orgID, docID string) (*model.Document, error) {
	doc, ok := s.docs[docID]
	if !ok || doc.OrgID != orgID {
		return nil, appErr.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

// fakeReviewStore mimics the transactional store: it applies the draft CAS
// and records documents and versions in memory.
type fakeReviewStore struct {
	drafts    *fakeDraftStore
	documents *fakeDocumentGetter
	versions  []model.DocumentVersion
}

func (s *fakeReviewStore) Approve(ctx context.Context, params repo.ApproveParams) error {
	stored, ok := s.drafts.drafts[params.Draft.ID]
	if !ok || stored.Status != model.DraftStatusPending {
		return appErr.ErrConflict
	}
	if params.IsUpdate {
		existing, ok := s.documents.docs[params.Document.ID]
		if !ok || existing.Version != params.Document.Version-1 {
			return appErr.ErrConflict
		}
	}
	stored.Status = model.DraftStatusApproved
	stored.ApprovedBy = params.Draft.ApprovedBy
	stored.ApprovedAt = params.Draft.ApprovedAt
	doc := *params.Document
	s.documents.docs[doc.ID] = &doc
	s.versions = append(s.versions, *params.Version)
	return nil
}

func (s *fakeReviewStore) Reject(ctx context.Context, draft *model.DraftDocument) error {
	stored, ok := s.drafts.drafts[draft.ID]
	if !ok || stored.Status != model.DraftStatusPending {
		return appErr.ErrConflict
	}
	stored.Status = model.DraftStatusRejected
	stored.ApprovedBy = draft.ApprovedBy
	stored.ApprovedAt = draft.ApprovedAt
	return nil
}

type fakeCategorizer struct {
	categoryID string
	err        error
	calls      int
}

func (c *fakeCategorizer) ResolveCategory(ctx context.Context, orgID string, doc *model.Document) (string, error) {
	c.calls++
	return c.categoryID, c.err
}

func pendingDraft(id, orgID, triage string) *model.DraftDocument {
	return &model.DraftDocument{
		ID:          id,
		OrgID:       orgID,
		Title:       "Release checklist",
		Content:     "# Release checklist\n\nTag, build, verify.",
		Summary:     "How releases go out.",
		Topics:      []string{"release"},
		Confidence:  0.9,
		TriageLevel: triage,
		Status:      model.DraftStatusPending,
	}
}

func newReviewFixture(drafts ...*model.DraftDocument) (*ReviewService, *fakeDraftStore, *fakeDocumentGetter, *fakeReviewStore, *fakeCategorizer) {
	draftStore := newFakeDraftStore(drafts...)
	docs := &fakeDocumentGetter{docs: map[string]*model.Document{}}
	store := &fakeReviewStore{drafts: draftStore, documents: docs}
	categorizer := &fakeCategorizer{categoryID: "cat-1"}
	svc := NewReviewService(draftStore, docs, store, categorizer)
	return svc, draftStore, docs, store, categorizer
}

func TestApprove_NewDocument(t *testing.T) {
	svc, draftStore, docs, store, categorizer := newReviewFixture(pendingDraft("d1", "org-1", "green"))

	doc, err := svc.Approve(context.Background(), "org-1", "manager-1", "d1", "")
	require.NoError(t, err)
	require.Equal(t, 1, doc.Version)
	require.Equal(t, "cat-1", doc.CategoryID)
	require.Equal(t, "manager-1", doc.ApprovedBy)
	require.Equal(t, 1, categorizer.calls)

	require.Len(t, store.versions, 1)
	require.Equal(t, 1, store.versions[0].Version)
	require.Equal(t, "Initial version", store.versions[0].Changes)
	require.Equal(t, doc.ID, store.versions[0].DocumentID)

	require.Equal(t, model.DraftStatusApproved, draftStore.drafts["d1"].Status)
	require.Contains(t, docs.docs, doc.ID)
}

func TestApprove_EditedContentOverrides(t *testing.T) {
	svc, _, docs, _, _ := newReviewFixture(pendingDraft("d1", "org-1", "green"))

	doc, err := svc.Approve(context.Background(), "org-1", "manager-1", "d1", "# Edited\n\nFinal wording.")
	require.NoError(t, err)
	require.Equal(t, "# Edited\n\nFinal wording.", docs.docs[doc.ID].Content)
}

func TestApprove_UpdateIncrementsVersion(t *testing.T) {
	first := pendingDraft("d1", "org-1", "green")
	svc, draftStore, _, store, _ := newReviewFixture(first)

	doc, err := svc.Approve(context.Background(), "org-1", "manager-1", "d1", "")
	require.NoError(t, err)

	update := pendingDraft("d2", "org-1", "green")
	update.IsUpdate = true
	update.OriginalDocumentID = doc.ID
	draftStore.drafts["d2"] = update

	updated, err := svc.Approve(context.Background(), "org-1", "manager-1", "d2", "")
	require.NoError(t, err)
	require.Equal(t, doc.ID, updated.ID)
	require.Equal(t, 2, updated.Version)

	require.Len(t, store.versions, 2)
	require.Equal(t, 1, store.versions[0].Version)
	require.Equal(t, 2, store.versions[1].Version)
}

func TestApprove_MissingOriginalCreatesNew(t *testing.T) {
	update := pendingDraft("d1", "org-1", "green")
	update.IsUpdate = true
	update.OriginalDocumentID = "gone"
	svc, _, _, store, _ := newReviewFixture(update)

	doc, err := svc.Approve(context.Background(), "org-1", "manager-1", "d1", "")
	require.NoError(t, err)
	require.NotEqual(t, "gone", doc.ID)
	require.Equal(t, 1, doc.Version)
	require.Equal(t, "Initial version", store.versions[0].Changes)
}

func TestApprove_TerminalDraftConflicts(t *testing.T) {
	draft := pendingDraft("d1", "org-1", "green")
	draft.Status = model.DraftStatusRejected
	svc, _, _, _, _ := newReviewFixture(draft)

	_, err := svc.Approve(context.Background(), "org-1", "manager-1", "d1", "")
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestApprove_CategorizerFailureDoesNotBlock(t *testing.T) {
	svc, _, _, _, categorizer := newReviewFixture(pendingDraft("d1", "org-1", "green"))
	categorizer.err = appErr.ErrInternal
	categorizer.categoryID = ""

	doc, err := svc.Approve(context.Background(), "org-1", "manager-1", "d1", "")
	require.NoError(t, err)
	require.Empty(t, doc.CategoryID)
}

func TestReject(t *testing.T) {
	svc, draftStore, docs, store, _ := newReviewFixture(pendingDraft("d1", "org-1", "green"))

	require.NoError(t, svc.Reject(context.Background(), "org-1", "manager-1", "d1"))
	require.Equal(t, model.DraftStatusRejected, draftStore.drafts["d1"].Status)
	require.Empty(t, docs.docs)
	require.Empty(t, store.versions)

	// Terminal: a second decision conflicts.
	require.ErrorIs(t, svc.Reject(context.Background(), "org-1", "manager-1", "d1"), appErr.ErrConflict)
	_, err := svc.Approve(context.Background(), "org-1", "manager-1", "d1", "")
	require.ErrorIs(t, err, appErr.ErrConflict)
}

func TestBatchApprove_OnlyGreenPending(t *testing.T) {
	green := pendingDraft("green-1", "org-1", "green")
	yellow := pendingDraft("yellow-1", "org-1", "yellow")
	approved := pendingDraft("done-1", "org-1", "green")
	approved.Status = model.DraftStatusApproved
	svc, draftStore, _, _, _ := newReviewFixture(green, yellow, approved)

	honored, err := svc.BatchApprove(context.Background(), "org-1", "manager-1",
		[]string{"green-1", "yellow-1", "done-1", "missing"})
	require.NoError(t, err)
	require.Equal(t, []string{"green-1"}, honored)

	require.Equal(t, model.DraftStatusApproved, draftStore.drafts["green-1"].Status)
	require.Equal(t, model.DraftStatusPending, draftStore.drafts["yellow-1"].Status)
}
