package pipeline

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-kb/strata/internal/model"
)

const structuredSample = `# Deployment runbook

The service is deployed through the standard release channel. Operators should
verify the health endpoint after every rollout and record the outcome.

## Rollback

If the health check fails twice in a row, roll back to the previous tag.`

func TestTriageFor(t *testing.T) {
	tests := []struct {
		score float64
		want  TriageLevel
	}{
		{0.0, TriageRed},
		{0.49, TriageRed},
		{0.5, TriageYellow},
		{0.79, TriageYellow},
		{0.8, TriageGreen},
		{1.0, TriageGreen},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, TriageFor(tt.score), "score %v", tt.score)
	}
}

func TestTriageMonotonicity(t *testing.T) {
	rank := map[TriageLevel]int{TriageRed: 0, TriageYellow: 1, TriageGreen: 2}
	prev := TriageRed
	for score := 0.0; score <= 1.0; score += 0.01 {
		level := TriageFor(score)
		require.GreaterOrEqual(t, rank[level], rank[prev])
		prev = level
	}
}

func TestScoreConfidence_Bounds(t *testing.T) {
	sources := []SourceMetadata{{SourceType: model.SourceTypeChatChannel, Author: "kim"}}
	assessment := ScoreConfidence(structuredSample, sources, nil)
	require.GreaterOrEqual(t, assessment.Score, 0.0)
	require.LessOrEqual(t, assessment.Score, 1.0)
	require.Len(t, assessment.FactorBreakdown, 4)
	for name, value := range assessment.FactorBreakdown {
		require.GreaterOrEqual(t, value, 0.0, name)
		require.LessOrEqual(t, value, 1.0, name)
	}
	require.NotEmpty(t, assessment.Reasoning)
	require.Contains(t, assessment.Reasoning, "confidence")
}

func TestScoreConfidence_EmptySourcesDoesNotFail(t *testing.T) {
	assessment := ScoreConfidence(structuredSample, nil, nil)
	require.GreaterOrEqual(t, assessment.Score, 0.0)
	// Missing sources drag authority and consistency to their floors.
	require.LessOrEqual(t, assessment.FactorBreakdown[FactorAuthority], 0.2)
	require.LessOrEqual(t, assessment.FactorBreakdown[FactorConsistency], 0.2)
}

func TestScoreConfidence_WeightOverrideNormalization(t *testing.T) {
	sources := []SourceMetadata{
		{SourceType: model.SourceTypeFileStore, Author: "kim"},
		{SourceType: model.SourceTypeFileStore, Author: "lee"},
	}
	overrides := map[string]float64{FactorClarity: 3.0}
	assessment := ScoreConfidence(structuredSample, sources, overrides)

	// Reconstruct effective weights the same way the scorer does and check
	// they sum to 1.
	weights := DefaultWeights()
	weights[FactorClarity] = 3.0
	var total float64
	for _, w := range weights {
		total += w
	}
	var sum float64
	for name := range weights {
		sum += weights[name] / total
	}
	require.InDelta(t, 1.0, sum, 1e-9)

	// Leaning on clarity pulls the composite toward the clarity factor.
	baseline := ScoreConfidence(structuredSample, sources, nil)
	clarity := assessment.FactorBreakdown[FactorClarity]
	require.LessOrEqual(t, math.Abs(assessment.Score-clarity), math.Abs(baseline.Score-clarity)+1e-9)
	require.False(t, math.IsNaN(assessment.Score))
}

func TestScoreConfidence_UnknownOverrideIgnored(t *testing.T) {
	a := ScoreConfidence(structuredSample, nil, map[string]float64{"nonsense": 9.0})
	b := ScoreConfidence(structuredSample, nil, nil)
	require.InDelta(t, b.Score, a.Score, 1e-9)
}

func TestConsistencyFactor(t *testing.T) {
	require.InDelta(t, 0.2, consistencyFactor(nil), 1e-9)
	one := []SourceMetadata{{Author: "kim"}, {Author: "KIM"}}
	require.InDelta(t, 0.9, consistencyFactor(one), 1e-9)
	many := []SourceMetadata{{Author: "a"}, {Author: "b"}, {Author: "c"}, {Author: "d"}, {Author: "e"}, {Author: "f"}}
	require.GreaterOrEqual(t, consistencyFactor(many), 0.4)
}

func TestClarityFactor_PreferStructuredText(t *testing.T) {
	flat := strings.Repeat("word ", 10)
	require.Greater(t, clarityFactor(structuredSample), clarityFactor(flat))
	require.Equal(t, 0.0, clarityFactor("   "))
}
