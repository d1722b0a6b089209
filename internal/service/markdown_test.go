package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractOutline(t *testing.T) {
	title, summary := extractOutline("# Deploy process\n\nTag the release and run the pipeline.\n\n## Steps\n\nMore detail.")
	require.Equal(t, "Deploy process", title)
	require.Equal(t, "Tag the release and run the pipeline.", summary)
}

func TestExtractOutline_NoHeading(t *testing.T) {
	title, summary := extractOutline("Just a paragraph explaining things.")
	require.Equal(t, "Just a paragraph explaining things.", title)
	require.Equal(t, "Just a paragraph explaining things.", summary)
}

func TestExtractOutline_LongSummaryTruncated(t *testing.T) {
	long := "# T\n\n" + strings.Repeat("words and more words ", 40)
	_, summary := extractOutline(long)
	require.LessOrEqual(t, len(summary), summaryMaxChars+3)
	require.True(t, strings.HasSuffix(summary, "..."))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	out := truncate("one two three four five", 12)
	require.True(t, strings.HasSuffix(out, "..."))
	require.LessOrEqual(t, len(out), 15)
}
