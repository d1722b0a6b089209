package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/strata-kb/strata/internal/ai"
	"github.com/strata-kb/strata/internal/model"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
	"github.com/strata-kb/strata/internal/pkg/timeutil"
)

const (
	defaultMaxSources          = 5
	defaultSimilarityThreshold = 0.7
	snippetMaxChars            = 200

	queryCacheSize = 512
	queryCacheTTL  = 10 * time.Minute

	noKnowledgeAnswer = "I don't have enough information in the knowledge base to answer this question yet."
	noKnowledgeScore  = 0.1
)

type ChunkSearcher interface {
	Search(ctx context.Context, orgID string, query []float32, topK int, minSimilarity float64) ([]model.ChunkMatch, error)
}

type AnswerLogStore interface {
	Create(ctx context.Context, log *model.AnswerLog) error
}

type AnswerResult struct {
	Answer     string               `json:"answer"`
	Confidence float64              `json:"confidence"`
	Sources    []model.AnswerSource `json:"sources"`
	TokensUsed int                  `json:"tokens_used"`
}

// AnswerService answers questions against the indexed knowledge base:
// retrieve similar chunks scoped to the org, then synthesize a grounded,
// cited answer. Zero retrieved context short-circuits to a canned response
// without a model call.
type AnswerService struct {
	searcher   ChunkSearcher
	logs       AnswerLogStore
	chat       ai.IChatModel
	embedder   ai.IEmbedder
	queryCache *expirable.LRU[string, []float32]
	timeout    time.Duration
	maxSources int
	threshold  float64
}

func NewAnswerService(searcher ChunkSearcher, logs AnswerLogStore, chat ai.IChatModel, embedder ai.IEmbedder, timeout time.Duration) *AnswerService {
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	return &AnswerService{
		searcher:   searcher,
		logs:       logs,
		chat:       chat,
		embedder:   embedder,
		queryCache: expirable.NewLRU[string, []float32](queryCacheSize, nil, queryCacheTTL),
		timeout:    timeout,
		maxSources: defaultMaxSources,
		threshold:  defaultSimilarityThreshold,
	}
}

func (s *AnswerService) Answer(ctx context.Context, orgID, question string) (*AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, appErr.ErrInvalid
	}

	queryVec, err := s.embedQuestion(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	matches, err := s.searcher.Search(ctx, orgID, queryVec, s.maxSources, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	var result *AnswerResult
	if len(matches) == 0 {
		result = &AnswerResult{
			Answer:     noKnowledgeAnswer,
			Confidence: noKnowledgeScore,
			Sources:    []model.AnswerSource{},
		}
	} else {
		result, err = s.synthesize(ctx, question, matches)
		if err != nil {
			return nil, err
		}
	}

	s.logAnswer(ctx, orgID, question, result)
	return result, nil
}

func (s *AnswerService) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	if vec, ok := s.queryCache.Get(question); ok {
		return vec, nil
	}
	embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	vec, err := s.embedder.Embed(embedCtx, question, embedTaskQuery)
	if err != nil {
		return nil, err
	}
	s.queryCache.Add(question, vec)
	return vec, nil
}

func (s *AnswerService) synthesize(ctx context.Context, question string, matches []model.ChunkMatch) (*AnswerResult, error) {
	var contextParts []string
	sources := make([]model.AnswerSource, 0, len(matches))
	for i, match := range matches {
		contextParts = append(contextParts, fmt.Sprintf("[%d] %s\n%s", i+1, match.Title, match.Content))
		sources = append(sources, model.AnswerSource{
			DocumentID: match.DocumentID,
			Title:      match.Title,
			ChunkIndex: match.ChunkIndex,
			Similarity: match.Similarity,
			Snippet:    truncate(match.Content, snippetMaxChars),
		})
	}

	prompt := fmt.Sprintf(`Answer the question using ONLY the context below.
If the context does not contain the answer, say so plainly.
Reference sources by their [n] markers where relevant.

CONTEXT:
%s

QUESTION:
%s`, strings.Join(contextParts, "\n\n"), question)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	temperature := float32(0.1)
	completion, err := s.chat.Complete(callCtx, []ai.Message{
		{Role: "user", Content: prompt},
	}, ai.CompleteOptions{Temperature: &temperature})
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}

	return &AnswerResult{
		Answer:     completion.Content,
		Confidence: answerConfidence(matches),
		Sources:    sources,
		TokensUsed: completion.Usage.TotalTokens,
	}, nil
}

// answerConfidence grows with both the similarity and the number of
// supporting chunks, and always exceeds the no-context baseline.
func answerConfidence(matches []model.ChunkMatch) float64 {
	if len(matches) == 0 {
		return noKnowledgeScore
	}
	var total float64
	for _, match := range matches {
		total += match.Similarity
	}
	avg := total / float64(len(matches))
	support := float64(len(matches))
	if support > 4 {
		support = 4
	}
	confidence := 0.3 + 0.5*avg + 0.04*support
	if confidence > 0.95 {
		confidence = 0.95
	}
	return confidence
}

func (s *AnswerService) logAnswer(ctx context.Context, orgID, question string, result *AnswerResult) {
	if s.logs == nil {
		return
	}
	entry := &model.AnswerLog{
		ID:         newID(),
		OrgID:      orgID,
		Question:   question,
		Answer:     result.Answer,
		Confidence: result.Confidence,
		Sources:    result.Sources,
		TokensUsed: result.TokensUsed,
		Ctime:      timeutil.NowUnix(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		logutil.GetLogger(ctx).Warn("answer log write failed", zap.Error(err))
	}
}
