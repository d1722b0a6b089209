package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strata-kb/strata/internal/ai"
	"github.com/strata-kb/strata/internal/model"
)

type fakeSearcher struct {
	matches []model.ChunkMatch
	err     error
}

func (s *fakeSearcher) Search(ctx context.Context, orgID string, query []float32, topK int, minSimilarity float64) ([]model.ChunkMatch, error) {
	return s.matches, s.err
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

func (e *fakeEmbedder) ModelName() string { return "fake-embed" }

type countingChat struct {
	calls    int
	response *ai.Completion
	err      error
}

func (c *countingChat) Complete(ctx context.Context, messages []ai.Message, opts ai.CompleteOptions) (*ai.Completion, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.response, nil
}

type fakeAnswerLogs struct {
	entries []*model.AnswerLog
	err     error
}

func (l *fakeAnswerLogs) Create(ctx context.Context, log *model.AnswerLog) error {
	if l.err != nil {
		return l.err
	}
	l.entries = append(l.entries, log)
	return nil
}

func TestAnswer_NoContextSkipsModel(t *testing.T) {
	chat := &countingChat{response: completion("should not be called", 10)}
	logs := &fakeAnswerLogs{}
	svc := NewAnswerService(&fakeSearcher{}, logs, chat, &fakeEmbedder{}, time.Second)

	result, err := svc.Answer(context.Background(), "org-1", "how do we deploy?")
	require.NoError(t, err)
	require.Equal(t, noKnowledgeAnswer, result.Answer)
	require.Equal(t, noKnowledgeScore, result.Confidence)
	require.Empty(t, result.Sources)
	require.Zero(t, chat.calls)
	require.Len(t, logs.entries, 1)
}

func TestAnswer_WithContext(t *testing.T) {
	matches := []model.ChunkMatch{
		{DocumentID: "doc-1", Title: "Deploy process", ChunkIndex: 0, Content: "Tag the release and run the pipeline.", Similarity: 0.91},
		{DocumentID: "doc-1", Title: "Deploy process", ChunkIndex: 1, Content: "Check the health endpoint after rollout.", Similarity: 0.84},
	}
	chat := &countingChat{response: completion("Tag the release, run the pipeline, then check health [1][2].", 80)}
	logs := &fakeAnswerLogs{}
	svc := NewAnswerService(&fakeSearcher{matches: matches}, logs, chat, &fakeEmbedder{}, time.Second)

	result, err := svc.Answer(context.Background(), "org-1", "how do we deploy?")
	require.NoError(t, err)
	require.Equal(t, 1, chat.calls)
	require.Len(t, result.Sources, 2)
	require.Equal(t, "doc-1", result.Sources[0].DocumentID)
	require.Equal(t, 0.91, result.Sources[0].Similarity)
	require.NotEmpty(t, result.Sources[0].Snippet)
	require.Equal(t, 80, result.TokensUsed)
	require.Greater(t, result.Confidence, noKnowledgeScore)

	require.Len(t, logs.entries, 1)
	require.Equal(t, result.Answer, logs.entries[0].Answer)
}

func TestAnswer_ConfidenceMonotoneInContext(t *testing.T) {
	weak := answerConfidence([]model.ChunkMatch{{Similarity: 0.71}})
	strong := answerConfidence([]model.ChunkMatch{
		{Similarity: 0.95}, {Similarity: 0.92}, {Similarity: 0.9},
	})
	require.Greater(t, weak, noKnowledgeScore)
	require.Greater(t, strong, weak)
	require.LessOrEqual(t, strong, 0.95)
}

func TestAnswer_LogFailureIsNonFatal(t *testing.T) {
	chat := &countingChat{response: completion("answer", 10)}
	logs := &fakeAnswerLogs{err: errors.New("log store down")}
	matches := []model.ChunkMatch{{DocumentID: "doc-1", Title: "T", Content: "c", Similarity: 0.8}}
	svc := NewAnswerService(&fakeSearcher{matches: matches}, logs, chat, &fakeEmbedder{}, time.Second)

	result, err := svc.Answer(context.Background(), "org-1", "q?")
	require.NoError(t, err)
	require.Equal(t, "answer", result.Answer)
}

func TestAnswer_QueryEmbeddingCached(t *testing.T) {
	embedder := &fakeEmbedder{}
	chat := &countingChat{response: completion("answer", 10)}
	svc := NewAnswerService(&fakeSearcher{}, &fakeAnswerLogs{}, chat, embedder, time.Second)

	_, err := svc.Answer(context.Background(), "org-1", "same question")
	require.NoError(t, err)
	_, err = svc.Answer(context.Background(), "org-1", "same question")
	require.NoError(t, err)
	require.Equal(t, 1, embedder.calls)
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	svc := NewAnswerService(&fakeSearcher{}, &fakeAnswerLogs{}, &countingChat{}, &fakeEmbedder{}, time.Second)
	_, err := svc.Answer(context.Background(), "org-1", "   ")
	require.Error(t, err)
}
