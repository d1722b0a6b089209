package job

import (
	"context"
	"time"

	"github.com/strata-kb/strata/internal/repo"
)

type IngestCleanupJob struct {
	jobs   *repo.IngestJobRepo
	maxAge time.Duration
}

func NewIngestCleanupJob(jobs *repo.IngestJobRepo, maxAge time.Duration) *IngestCleanupJob {
	return &IngestCleanupJob{jobs: jobs, maxAge: maxAge}
}

func (j *IngestCleanupJob) Name() string {
	return "ingest_cleanup"
}

// Run fails ingest jobs stuck in the running state past maxAge, typically
// after a crash mid-job.
func (j *IngestCleanupJob) Run(ctx context.Context) error {
	if j.jobs == nil {
		return nil
	}
	maxAge := j.maxAge
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	cutoff := time.Now().Add(-maxAge).Unix()
	_, err := j.jobs.FailStale(ctx, cutoff)
	return err
}
