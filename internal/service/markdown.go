package service

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const summaryMaxChars = 280

// extractOutline pulls a title and a short summary out of markdown content:
// the first heading becomes the title, the first paragraph the summary.
func extractOutline(content string) (string, string) {
	src := []byte(content)
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var title, summary string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if title == "" {
				title = strings.TrimSpace(string(node.Text(src)))
			}
		case *ast.Paragraph:
			if summary == "" {
				summary = strings.TrimSpace(string(node.Text(src)))
			}
		}
		if title != "" && summary != "" {
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	if title == "" {
		title = firstLine(content)
	}
	if summary == "" {
		summary = strings.TrimSpace(content)
	}
	return truncate(title, 120), truncate(summary, summaryMaxChars)
}

func firstLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			return line
		}
	}
	return "Untitled"
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}
