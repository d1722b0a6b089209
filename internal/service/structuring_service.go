package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/strata-kb/strata/internal/ai"
	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pipeline"
	"github.com/strata-kb/strata/internal/pkg/timeutil"
)

const (
	docTypeAIDetermined = "AI_DETERMINED"
	docTypeDefault      = "Default SOP"

	defaultModelTimeout = 30 * time.Second
	maxTopics           = 8
)

var docTypeLabels = []string{
	"SOP",
	"FAQ",
	"Troubleshooting Guide",
	"Policy",
	"Technical Reference",
	"Onboarding Guide",
	docTypeAIDetermined,
}

// StructuringService turns a content group into a draft document through a
// fixed stage sequence: classify, structure, extract topics, score. Transport
// failures at any stage fail the group; unparseable model output degrades to
// stage-specific fallbacks.
type StructuringService struct {
	chat     ai.IChatModel
	redactor Redactor
	timeout  time.Duration
}

func NewStructuringService(chat ai.IChatModel, redactor Redactor, timeout time.Duration) *StructuringService {
	if timeout <= 0 {
		timeout = defaultModelTimeout
	}
	if redactor == nil {
		redactor = NewPassthroughRedactor()
	}
	return &StructuringService{chat: chat, redactor: redactor, timeout: timeout}
}

func (s *StructuringService) StructureGroup(ctx context.Context, orgID string, group pipeline.ContentGroup) (*model.DraftDocument, error) {
	raw := s.redactor.Redact(combineItems(group.Items))
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("content group is empty")
	}

	tokens := 0
	docType, usage, err := s.classify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	tokens += usage

	structured, usage, err := s.structure(ctx, raw, docType)
	if err != nil {
		return nil, fmt.Errorf("structure: %w", err)
	}
	tokens += usage

	topics, usage, err := s.extractTopics(ctx, structured)
	if err != nil {
		return nil, fmt.Errorf("extract topics: %w", err)
	}
	tokens += usage

	sources := make([]pipeline.SourceMetadata, 0, len(group.Items))
	for _, item := range group.Items {
		sources = append(sources, pipeline.SourceMetadata{SourceType: item.SourceType, Author: item.Author})
	}
	assessment := pipeline.ScoreConfidence(structured, sources, nil)

	title, summary := extractOutline(structured)
	now := timeutil.NowUnix()
	return &model.DraftDocument{
		ID:              newID(),
		OrgID:           orgID,
		Title:           title,
		Content:         structured,
		Summary:         summary,
		DocType:         docType,
		Topics:          topics,
		Confidence:      assessment.Score,
		TriageLevel:     string(assessment.Level),
		Reasoning:       assessment.Reasoning,
		FactorBreakdown: assessment.FactorBreakdown,
		SourceRefs:      group.SourceRefs(),
		Status:          model.DraftStatusPending,
		TokensUsed:      tokens,
		Ctime:           now,
		Mtime:           now,
	}, nil
}

func (s *StructuringService) classify(ctx context.Context, raw string) (string, int, error) {
	prompt := fmt.Sprintf(`You are a knowledge-base librarian.
Classify the content below into exactly one of these document types:
%s
If none fits well, answer AI_DETERMINED.
Answer with the type name only. No explanations.

CONTENT:
%s`, strings.Join(docTypeLabels, "\n"), raw)
	completion, err := s.call(ctx, prompt, 0.0)
	if err != nil {
		return "", 0, err
	}
	label := ai.ParseLabel(completion.Content, docTypeLabels, docTypeDefault)
	if label == docTypeDefault {
		logutil.GetLogger(ctx).Warn("unrecognized document type, using default",
			zap.String("raw", truncate(completion.Content, 80)))
	}
	return label, completion.Usage.TotalTokens, nil
}

func (s *StructuringService) structure(ctx context.Context, raw, docType string) (string, int, error) {
	var prompt string
	if docType == docTypeAIDetermined {
		prompt = fmt.Sprintf(`You are a technical writer.
Rewrite the raw content below into a clear, well-organized markdown document.
Choose whatever structure fits the material best.
- Start with a single # heading naming the document.
- Keep every fact from the source; do not invent information.
- Output ONLY the markdown document.

RAW CONTENT:
%s`, raw)
	} else {
		prompt = fmt.Sprintf(`You are a technical writer.
Rewrite the raw content below into a markdown document of type "%s".
- Start with a single # heading naming the document.
- Use ## sections appropriate for a %s (overview, steps or entries, caveats).
- Keep every fact from the source; do not invent information.
- Output ONLY the markdown document.

RAW CONTENT:
%s`, docType, docType, raw)
	}
	completion, err := s.call(ctx, prompt, 0.2)
	if err != nil {
		return "", 0, err
	}
	structured := strings.TrimSpace(completion.Content)
	if structured == "" {
		// A blank rewrite is useless; keep the redacted raw text instead.
		structured = raw
	}
	return structured, completion.Usage.TotalTokens, nil
}

func (s *StructuringService) extractTopics(ctx context.Context, structured string) ([]string, int, error) {
	prompt := fmt.Sprintf(`Extract up to %d topic phrases from the document below.
Topics are short (1-3 words), lowercase where natural.
Return a JSON array of strings only. No extra text.

DOCUMENT:
%s`, maxTopics, structured)
	completion, err := s.call(ctx, prompt, 0.0)
	if err != nil {
		return nil, 0, err
	}
	topics, parseErr := ai.ParseStringList(completion.Content, maxTopics)
	if parseErr != nil {
		logutil.GetLogger(ctx).Warn("topic extraction unparseable, using empty list", zap.Error(parseErr))
		topics = []string{}
	}
	return topics, completion.Usage.TotalTokens, nil
}

func (s *StructuringService) call(ctx context.Context, prompt string, temperature float32) (*ai.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.chat.Complete(ctx, []ai.Message{
		{Role: "user", Content: prompt},
	}, ai.CompleteOptions{Temperature: &temperature})
}

func combineItems(items []model.ContentItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		if item.Author != "" {
			parts = append(parts, item.Author+": "+content)
			continue
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, "\n\n")
}
