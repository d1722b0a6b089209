package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/strata-kb/strata/internal/ai"
	"github.com/strata-kb/strata/internal/model"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
	"github.com/strata-kb/strata/internal/pkg/timeutil"
)

const (
	defaultCategoryName = "General"
	similarityThreshold = 0.6
)

type CategoryStore interface {
	Create(ctx context.Context, category *model.Category) error
	List(ctx context.Context, orgID string) ([]model.Category, error)
}

// CategoryService suggests and maintains document categories. Model calls are
// paced through a rate limiter since categorization often runs in bulk right
// after an ingest wave.
type CategoryService struct {
	store   CategoryStore
	chat    ai.IChatModel
	limiter *rate.Limiter
	timeout time.Duration
}

func NewCategoryService(store CategoryStore, chat ai.IChatModel, limiter *rate.Limiter, timeout time.Duration) *CategoryService {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(time.Second), 2)
	}
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	return &CategoryService{store: store, chat: chat, limiter: limiter, timeout: timeout}
}

func (s *CategoryService) List(ctx context.Context, orgID string) ([]model.Category, error) {
	return s.store.List(ctx, orgID)
}

// Similar reports whether two category names describe the same category,
// using Jaccard token overlap. Kept as a pure function so the merge strategy
// can be swapped without touching callers.
func Similar(a, b string) bool {
	tokensA := nameTokens(a)
	tokensB := nameTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return false
	}
	intersection := 0
	for token := range tokensA {
		if tokensB[token] {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	return float64(intersection)/float64(union) >= similarityThreshold
}

func nameTokens(name string) map[string]bool {
	tokens := make(map[string]bool)
	for _, token := range strings.Fields(strings.ToLower(name)) {
		token = strings.Trim(token, ".,:;&/-")
		if token != "" {
			tokens[token] = true
		}
	}
	return tokens
}

// Suggest asks the model for a category given the document and the org's
// existing categories. Unparseable output degrades to the default category.
func (s *CategoryService) Suggest(ctx context.Context, orgID string, doc *model.Document) (*model.CategorySuggestion, error) {
	existing, err := s.store.List(ctx, orgID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(existing))
	for _, category := range existing {
		names = append(names, category.Name)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf(`Pick the best category for the document below.
Prefer one of the existing categories; propose a new short name only when none fits.
Existing categories: %s

Return JSON only: {"name": "...", "confidence": 0.0, "reasoning": "..."}

DOCUMENT TITLE: %s
DOCUMENT SUMMARY: %s`, strings.Join(names, ", "), doc.Title, doc.Summary)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	temperature := float32(0.0)
	completion, err := s.chat.Complete(callCtx, []ai.Message{
		{Role: "user", Content: prompt},
	}, ai.CompleteOptions{Temperature: &temperature})
	if err != nil {
		return nil, err
	}

	var suggestion model.CategorySuggestion
	if err := ai.DecodeJSON(completion.Content, &suggestion); err != nil || strings.TrimSpace(suggestion.Name) == "" {
		logutil.GetLogger(ctx).Warn("category suggestion unparseable, using default", zap.Error(err))
		return &model.CategorySuggestion{
			Name:       defaultCategoryName,
			Confidence: 0.2,
			Reasoning:  "model output unparseable",
		}, nil
	}
	suggestion.Name = strings.TrimSpace(suggestion.Name)
	return &suggestion, nil
}

// ResolveCategory maps a document onto an existing or new category id. Any
// model failure degrades to the default category; only storage failures
// propagate.
func (s *CategoryService) ResolveCategory(ctx context.Context, orgID string, doc *model.Document) (string, error) {
	suggestion, err := s.Suggest(ctx, orgID, doc)
	if err != nil {
		logutil.GetLogger(ctx).Warn("category suggestion failed, using default", zap.Error(err))
		suggestion = &model.CategorySuggestion{Name: defaultCategoryName}
	}
	return s.ensureCategory(ctx, orgID, suggestion.Name)
}

func (s *CategoryService) ensureCategory(ctx context.Context, orgID, name string) (string, error) {
	existing, err := s.store.List(ctx, orgID)
	if err != nil {
		return "", err
	}
	for _, category := range existing {
		if strings.EqualFold(category.Name, name) || Similar(category.Name, name) {
			return category.ID, nil
		}
	}

	now := timeutil.NowUnix()
	category := &model.Category{
		ID:    newID(),
		OrgID: orgID,
		Name:  name,
		Ctime: now,
		Mtime: now,
	}
	if err := s.store.Create(ctx, category); err != nil {
		if errors.Is(err, appErr.ErrConflict) {
			// Lost a race to a concurrent approval; pick up the winner.
			return s.findByName(ctx, orgID, name)
		}
		return "", err
	}
	return category.ID, nil
}

func (s *CategoryService) findByName(ctx context.Context, orgID, name string) (string, error) {
	existing, err := s.store.List(ctx, orgID)
	if err != nil {
		return "", err
	}
	for _, category := range existing {
		if strings.EqualFold(category.Name, name) {
			return category.ID, nil
		}
	}
	return "", appErr.ErrNotFound
}
