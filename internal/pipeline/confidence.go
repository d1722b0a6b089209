package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/strata-kb/strata/internal/model"
)

type TriageLevel string

const (
	TriageGreen  TriageLevel = "green"
	TriageYellow TriageLevel = "yellow"
	TriageRed    TriageLevel = "red"
)

// Canonical triage thresholds. Every call site uses this pair.
const (
	triageGreenMin  = 0.8
	triageYellowMin = 0.5
)

func TriageFor(score float64) TriageLevel {
	switch {
	case score >= triageGreenMin:
		return TriageGreen
	case score >= triageYellowMin:
		return TriageYellow
	default:
		return TriageRed
	}
}

const (
	FactorClarity     = "content_clarity"
	FactorConsistency = "source_consistency"
	FactorDensity     = "information_density"
	FactorAuthority   = "authority"
)

var factorLabels = map[string]string{
	FactorClarity:     "content clarity",
	FactorConsistency: "source consistency",
	FactorDensity:     "information density",
	FactorAuthority:   "authority",
}

// DefaultWeights sum to 1.0.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		FactorClarity:     0.30,
		FactorConsistency: 0.25,
		FactorDensity:     0.25,
		FactorAuthority:   0.20,
	}
}

// SourceMetadata describes one contributing source item for scoring.
type SourceMetadata struct {
	SourceType model.SourceType
	Author     string
}

type ConfidenceAssessment struct {
	Score           float64            `json:"score"`
	Level           TriageLevel        `json:"level"`
	Reasoning       string             `json:"reasoning"`
	FactorBreakdown map[string]float64 `json:"factor_breakdown"`
}

// ScoreConfidence computes the weighted composite confidence for a candidate
// document. Overrides replace individual default weights; the effective set is
// re-normalized to sum to 1.0 before combining. An empty source list degrades
// the consistency and authority factors toward their floor instead of failing.
func ScoreConfidence(content string, sources []SourceMetadata, overrides map[string]float64) ConfidenceAssessment {
	weights := DefaultWeights()
	for name, w := range overrides {
		if _, ok := weights[name]; ok && w >= 0 {
			weights[name] = w
		}
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		weights = DefaultWeights()
		total = 1.0
	}
	for name := range weights {
		weights[name] /= total
	}

	factors := map[string]float64{
		FactorClarity:     clarityFactor(content),
		FactorConsistency: consistencyFactor(sources),
		FactorDensity:     densityFactor(content),
		FactorAuthority:   authorityFactor(sources),
	}

	var score float64
	for name, value := range factors {
		score += weights[name] * value
	}
	score = clamp01(score)
	level := TriageFor(score)
	return ConfidenceAssessment{
		Score:           score,
		Level:           level,
		Reasoning:       buildReasoning(score, level, factors),
		FactorBreakdown: factors,
	}
}

func clarityFactor(content string) float64 {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0
	}
	score := 0.3
	words := strings.Fields(trimmed)
	if len(words) >= 50 {
		score += 0.2
	} else if len(words) >= 20 {
		score += 0.1
	}
	if strings.ContainsAny(trimmed, ".!?") {
		score += 0.2
	}
	// Headings or paragraph structure read as deliberate writing.
	if strings.Contains(trimmed, "\n\n") || strings.Contains(trimmed, "# ") {
		score += 0.3
	}
	return clamp01(score)
}

func consistencyFactor(sources []SourceMetadata) float64 {
	if len(sources) == 0 {
		return 0.2
	}
	authors := make(map[string]struct{})
	for _, src := range sources {
		if src.Author != "" {
			authors[strings.ToLower(src.Author)] = struct{}{}
		}
	}
	switch len(authors) {
	case 0:
		return 0.4
	case 1:
		return 0.9
	case 2:
		return 0.75
	default:
		value := 0.9 - 0.15*float64(len(authors)-1)
		if value < 0.4 {
			value = 0.4
		}
		return value
	}
}

func densityFactor(content string) float64 {
	words := strings.Fields(content)
	if len(words) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(words))
	informative := 0
	for _, word := range words {
		normalized := strings.ToLower(strings.Trim(word, ".,!?:;\"'()"))
		if normalized == "" {
			continue
		}
		unique[normalized] = struct{}{}
		if len(normalized) > 3 {
			informative++
		}
	}
	uniqueRatio := float64(len(unique)) / float64(len(words))
	informativeRatio := float64(informative) / float64(len(words))
	return clamp01(0.5*uniqueRatio + 0.7*informativeRatio)
}

func authorityFactor(sources []SourceMetadata) float64 {
	if len(sources) == 0 {
		return 0.2
	}
	base := 0.0
	for _, src := range sources {
		if src.SourceType == model.SourceTypeFileStore {
			base += 0.8
		} else {
			base += 0.6
		}
	}
	base /= float64(len(sources))
	// A handful of participants corroborating beats a single shout.
	participants := make(map[string]struct{})
	for _, src := range sources {
		if src.Author != "" {
			participants[strings.ToLower(src.Author)] = struct{}{}
		}
	}
	if n := len(participants); n >= 2 {
		base += 0.05 * float64(min(n, 4))
	}
	return clamp01(base)
}

func buildReasoning(score float64, level TriageLevel, factors map[string]float64) string {
	names := make([]string, 0, len(factors))
	for name := range factors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return factors[names[i]] > factors[names[j]]
	})
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %.2f", factorLabels[name], factors[name]))
	}
	return fmt.Sprintf("confidence %.2f (%s): %s; strongest %s, weakest %s",
		score, level, strings.Join(parts, ", "),
		factorLabels[names[0]], factorLabels[names[len(names)-1]])
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
