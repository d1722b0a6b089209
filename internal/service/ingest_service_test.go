package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pipeline"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
	"github.com/strata-kb/strata/internal/source"
)

type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]*model.IngestJob
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: map[string]*model.IngestJob{}}
}

func (s *fakeJobStore) Create(ctx context.Context, job *model.IngestJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *fakeJobStore) GetByID(ctx context.Context, orgID, jobID string) (*model.IngestJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.OrgID != orgID {
		return nil, appErr.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *fakeJobStore) UpdateStatusIf(ctx context.Context, jobID, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != from {
		return appErr.ErrConflict
	}
	job.Status = to
	return nil
}

func (s *fakeJobStore) UpdateProgress(ctx context.Context, jobID string, processed, total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.Processed = processed
		job.Total = total
	}
	return nil
}

func (s *fakeJobStore) Complete(ctx context.Context, jobID string, report *model.IngestReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != model.IngestStatusRunning {
		return appErr.ErrConflict
	}
	job.Status = model.IngestStatusCompleted
	job.Report = report
	return nil
}

func (s *fakeJobStore) Fail(ctx context.Context, jobID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = model.IngestStatusFailed
		job.Error = errMsg
	}
	return nil
}

type fakeItemStore struct {
	mu    sync.Mutex
	items map[string][]model.IngestItem
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: map[string][]model.IngestItem{}}
}

func (s *fakeItemStore) BatchCreate(ctx context.Context, items []model.IngestItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.items[item.JobID] = append(s.items[item.JobID], item)
	}
	return nil
}

func (s *fakeItemStore) ListByJob(ctx context.Context, jobID string) ([]model.IngestItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.IngestItem(nil), s.items[jobID]...), nil
}

func (s *fakeItemStore) DeleteByJob(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, jobID)
	return nil
}

type fakeDraftCreator struct {
	mu     sync.Mutex
	drafts []*model.DraftDocument
}

func (s *fakeDraftCreator) Create(ctx context.Context, draft *model.DraftDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = append(s.drafts, draft)
	return nil
}

type fakeStructurer struct {
	err    error
	groups []pipeline.ContentGroup
}

func (s *fakeStructurer) StructureGroup(ctx context.Context, orgID string, group pipeline.ContentGroup) (*model.DraftDocument, error) {
	s.groups = append(s.groups, group)
	if s.err != nil {
		return nil, s.err
	}
	return &model.DraftDocument{
		ID:     newID(),
		OrgID:  orgID,
		Title:  "Draft from " + group.SourceID,
		Status: model.DraftStatusPending,
	}, nil
}

type fakeFetcher struct {
	items []model.ContentItem
	err   error
}

func (f *fakeFetcher) SourceType() model.SourceType { return model.SourceTypeFileStore }
func (f *fakeFetcher) SourceID() string             { return "docs-bucket" }
func (f *fakeFetcher) Fetch(ctx context.Context) ([]model.ContentItem, error) {
	return f.items, f.err
}

func inlineItems() []model.ContentItem {
	return []model.ContentItem{
		{SourceType: model.SourceTypeChatChannel, SourceID: "chan-1", Author: "kim",
			Content: "We deploy by tagging a release.", Timestamp: 1000},
		{SourceType: model.SourceTypeChatChannel, SourceID: "chan-1", Author: "lee",
			Content: "And then we watch the health endpoint.", Timestamp: 1300},
	}
}

func TestStartJob_RequiresSourceOrItems(t *testing.T) {
	svc := NewIngestService(newFakeJobStore(), newFakeItemStore(), &fakeDraftCreator{}, &fakeStructurer{}, nil)
	_, err := svc.StartJob(context.Background(), "org-1", "", nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestStartJob_UnknownSource(t *testing.T) {
	svc := NewIngestService(newFakeJobStore(), newFakeItemStore(), &fakeDraftCreator{}, &fakeStructurer{}, nil)
	_, err := svc.StartJob(context.Background(), "org-1", "nope", nil)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestRun_InlineItemsProduceDraft(t *testing.T) {
	jobs := newFakeJobStore()
	items := newFakeItemStore()
	drafts := &fakeDraftCreator{}
	structurer := &fakeStructurer{}
	svc := NewIngestService(jobs, items, drafts, structurer, nil)

	job := &model.IngestJob{ID: "job-1", OrgID: "org-1", Status: model.IngestStatusPending}
	require.NoError(t, jobs.Create(context.Background(), job))
	require.NoError(t, items.BatchCreate(context.Background(), stageItems(job, inlineItems())))

	svc.run(context.Background(), job, nil)

	final, err := jobs.GetByID(context.Background(), "org-1", "job-1")
	require.NoError(t, err)
	require.Equal(t, model.IngestStatusCompleted, final.Status)
	require.NotNil(t, final.Report)
	// Two items five minutes apart from the same source form one group.
	require.Equal(t, 1, final.Report.Groups)
	require.Equal(t, 1, final.Report.DraftsCreated)
	require.Zero(t, final.Report.Failed)
	require.Equal(t, 2, final.Processed)
	require.Equal(t, 2, final.Total)

	require.Len(t, drafts.drafts, 1)
	require.Len(t, structurer.groups[0].Items, 2)

	// Staged items are cleaned up after completion.
	left, err := items.ListByJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestRun_FetcherFailureFailsJob(t *testing.T) {
	jobs := newFakeJobStore()
	svc := NewIngestService(jobs, newFakeItemStore(), &fakeDraftCreator{}, &fakeStructurer{}, nil)

	job := &model.IngestJob{ID: "job-1", OrgID: "org-1", Status: model.IngestStatusPending}
	require.NoError(t, jobs.Create(context.Background(), job))

	svc.run(context.Background(), job, &fakeFetcher{err: errors.New("bucket gone")})

	final, err := jobs.GetByID(context.Background(), "org-1", "job-1")
	require.NoError(t, err)
	require.Equal(t, model.IngestStatusFailed, final.Status)
	require.Contains(t, final.Error, "bucket gone")
}

func TestRun_GroupFailureRecordedInReport(t *testing.T) {
	jobs := newFakeJobStore()
	items := newFakeItemStore()
	structurer := &fakeStructurer{err: errors.New("model down")}
	svc := NewIngestService(jobs, items, &fakeDraftCreator{}, structurer, nil)

	job := &model.IngestJob{ID: "job-1", OrgID: "org-1", Status: model.IngestStatusPending}
	require.NoError(t, jobs.Create(context.Background(), job))
	require.NoError(t, items.BatchCreate(context.Background(), stageItems(job, inlineItems())))

	svc.run(context.Background(), job, nil)

	final, err := jobs.GetByID(context.Background(), "org-1", "job-1")
	require.NoError(t, err)
	// The job itself completes; the failed group lands in the report.
	require.Equal(t, model.IngestStatusCompleted, final.Status)
	require.Equal(t, 1, final.Report.Failed)
	require.Zero(t, final.Report.DraftsCreated)
	require.NotEmpty(t, final.Report.Errors)
}

func TestRun_FetchedItemsAreStagedAndProcessed(t *testing.T) {
	jobs := newFakeJobStore()
	items := newFakeItemStore()
	drafts := &fakeDraftCreator{}
	svc := NewIngestService(jobs, items, drafts, &fakeStructurer{},
		map[string]source.Fetcher{"docs-bucket": &fakeFetcher{}})

	fetched := []model.ContentItem{
		{SourceType: model.SourceTypeFileStore, SourceID: "docs-bucket",
			Content: "# Runbook\n\nSteps live here.", Timestamp: 2000},
	}
	job := &model.IngestJob{ID: "job-1", OrgID: "org-1", Status: model.IngestStatusPending}
	require.NoError(t, jobs.Create(context.Background(), job))

	svc.run(context.Background(), job, &fakeFetcher{items: fetched})

	final, err := jobs.GetByID(context.Background(), "org-1", "job-1")
	require.NoError(t, err)
	require.Equal(t, model.IngestStatusCompleted, final.Status)
	require.Equal(t, 1, final.Report.DraftsCreated)
	require.Len(t, drafts.drafts, 1)
}
