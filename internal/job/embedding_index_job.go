package job

import (
	"context"

	"github.com/strata-kb/strata/internal/service"
)

type EmbeddingIndexJob struct {
	indexer *service.IndexerService
	batch   uint
}

func NewEmbeddingIndexJob(indexer *service.IndexerService, batch uint) *EmbeddingIndexJob {
	if batch == 0 {
		batch = 20
	}
	return &EmbeddingIndexJob{indexer: indexer, batch: batch}
}

func (j *EmbeddingIndexJob) Name() string {
	return "embedding_index"
}

func (j *EmbeddingIndexJob) Run(ctx context.Context) error {
	if j.indexer == nil {
		return nil
	}
	_, err := j.indexer.IndexPending(ctx, j.batch)
	return err
}
