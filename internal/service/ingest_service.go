package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pipeline"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
	"github.com/strata-kb/strata/internal/pkg/timeutil"
	"github.com/strata-kb/strata/internal/source"
)

type IngestJobStore interface {
	Create(ctx context.Context, job *model.IngestJob) error
	GetByID(ctx context.Context, orgID, jobID string) (*model.IngestJob, error)
	UpdateStatusIf(ctx context.Context, jobID, from, to string) error
	UpdateProgress(ctx context.Context, jobID string, processed, total int) error
	Complete(ctx context.Context, jobID string, report *model.IngestReport) error
	Fail(ctx context.Context, jobID, errMsg string) error
}

type IngestItemStore interface {
	BatchCreate(ctx context.Context, items []model.IngestItem) error
	ListByJob(ctx context.Context, jobID string) ([]model.IngestItem, error)
	DeleteByJob(ctx context.Context, jobID string) error
}

type DraftCreator interface {
	Create(ctx context.Context, draft *model.DraftDocument) error
}

type GroupStructurer interface {
	StructureGroup(ctx context.Context, orgID string, group pipeline.ContentGroup) (*model.DraftDocument, error)
}

// IngestService runs ingestion jobs: fetch or accept raw items, group them,
// and structure each group into a pending draft. The initiating call returns
// the job immediately; progress is observable by polling.
type IngestService struct {
	jobs       IngestJobStore
	items      IngestItemStore
	drafts     DraftCreator
	structurer GroupStructurer
	fetchers   map[string]source.Fetcher
	groupOpts  pipeline.GroupOptions
}

func NewIngestService(jobs IngestJobStore, items IngestItemStore, drafts DraftCreator,
	structurer GroupStructurer, fetchers map[string]source.Fetcher) *IngestService {
	return &IngestService{
		jobs:       jobs,
		items:      items,
		drafts:     drafts,
		structurer: structurer,
		fetchers:   fetchers,
		groupOpts:  pipeline.DefaultGroupOptions(),
	}
}

// StartJob creates the job record and kicks off processing in the background.
// Either sourceName references a configured fetcher, or inline items are
// supplied directly.
func (s *IngestService) StartJob(ctx context.Context, orgID, sourceName string, inline []model.ContentItem) (*model.IngestJob, error) {
	if sourceName == "" && len(inline) == 0 {
		return nil, appErr.ErrInvalid
	}
	var fetcher source.Fetcher
	if sourceName != "" {
		fetcher = s.fetchers[sourceName]
		if fetcher == nil {
			return nil, appErr.ErrNotFound
		}
	}

	now := timeutil.NowUnix()
	job := &model.IngestJob{
		ID:     newID(),
		OrgID:  orgID,
		Source: sourceName,
		Status: model.IngestStatusPending,
		Total:  len(inline),
		Ctime:  now,
		Mtime:  now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	if len(inline) > 0 {
		if err := s.items.BatchCreate(ctx, stageItems(job, inline)); err != nil {
			_ = s.jobs.Fail(ctx, job.ID, "stage items: "+err.Error())
			return nil, err
		}
	}

	go s.run(context.Background(), job, fetcher)
	return job, nil
}

func (s *IngestService) Status(ctx context.Context, orgID, jobID string) (*model.IngestJob, error) {
	return s.jobs.GetByID(ctx, orgID, jobID)
}

func (s *IngestService) run(ctx context.Context, job *model.IngestJob, fetcher source.Fetcher) {
	logger := logutil.GetLogger(ctx).With(zap.String("job_id", job.ID), zap.String("org_id", job.OrgID))
	if err := s.jobs.UpdateStatusIf(ctx, job.ID, model.IngestStatusPending, model.IngestStatusRunning); err != nil {
		logger.Warn("job already claimed", zap.Error(err))
		return
	}

	if fetcher != nil {
		fetched, err := fetcher.Fetch(ctx)
		if err != nil {
			logger.Error("fetch source failed", zap.Error(err))
			_ = s.jobs.Fail(ctx, job.ID, "fetch source: "+err.Error())
			return
		}
		if len(fetched) > 0 {
			if err := s.items.BatchCreate(ctx, stageItems(job, fetched)); err != nil {
				logger.Error("stage items failed", zap.Error(err))
				_ = s.jobs.Fail(ctx, job.ID, "stage items: "+err.Error())
				return
			}
		}
	}

	staged, err := s.items.ListByJob(ctx, job.ID)
	if err != nil {
		logger.Error("load staged items failed", zap.Error(err))
		_ = s.jobs.Fail(ctx, job.ID, "load staged items: "+err.Error())
		return
	}
	total := len(staged)
	if err := s.jobs.UpdateProgress(ctx, job.ID, 0, total); err != nil {
		logger.Warn("update progress failed", zap.Error(err))
	}

	items := make([]model.ContentItem, 0, len(staged))
	for _, item := range staged {
		items = append(items, model.ContentItem{
			ID:         item.ID,
			SourceType: item.SourceType,
			SourceID:   item.SourceID,
			Content:    item.Content,
			Author:     item.Author,
			Timestamp:  item.Timestamp,
			URL:        item.URL,
		})
	}
	groups := pipeline.GroupItems(items, s.groupOpts)

	report := &model.IngestReport{Groups: len(groups)}
	processed := 0
	for _, group := range groups {
		if _, err := s.processGroup(ctx, job.OrgID, group); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Sprintf("group %s@%d: %v", group.SourceID, group.StartTime(), err))
			logger.Warn("group processing failed", zap.String("source_id", group.SourceID), zap.Error(err))
		} else {
			report.DraftsCreated++
		}
		processed += len(group.Items)
		if err := s.jobs.UpdateProgress(ctx, job.ID, processed, total); err != nil {
			logger.Warn("update progress failed", zap.Error(err))
		}
	}

	if err := s.items.DeleteByJob(ctx, job.ID); err != nil {
		logger.Warn("cleanup staged items failed", zap.Error(err))
	}
	if err := s.jobs.Complete(ctx, job.ID, report); err != nil {
		logger.Error("complete job failed", zap.Error(err))
		return
	}
	logger.Info("ingest job completed",
		zap.Int("groups", report.Groups),
		zap.Int("drafts", report.DraftsCreated),
		zap.Int("failed", report.Failed))
}

func (s *IngestService) processGroup(ctx context.Context, orgID string, group pipeline.ContentGroup) (*model.DraftDocument, error) {
	draft, err := s.structurer.StructureGroup(ctx, orgID, group)
	if err != nil {
		return nil, err
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, fmt.Errorf("persist draft: %w", err)
	}
	return draft, nil
}

func stageItems(job *model.IngestJob, items []model.ContentItem) []model.IngestItem {
	now := timeutil.NowUnix()
	staged := make([]model.IngestItem, 0, len(items))
	for i, item := range items {
		if strings.TrimSpace(item.Content) == "" {
			continue
		}
		staged = append(staged, model.IngestItem{
			ID:         newID(),
			JobID:      job.ID,
			OrgID:      job.OrgID,
			Position:   i,
			SourceType: item.SourceType,
			SourceID:   item.SourceID,
			Author:     item.Author,
			URL:        item.URL,
			Content:    item.Content,
			Timestamp:  item.Timestamp,
			Ctime:      now,
		})
	}
	return staged
}
