package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON strips code fences and surrounding chatter, returning the first
// JSON object or array in the model output.
func ExtractJSON(output string) string {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	objStart := strings.Index(clean, "{")
	arrStart := strings.Index(clean, "[")
	switch {
	case objStart >= 0 && (arrStart < 0 || objStart < arrStart):
		if end := strings.LastIndex(clean, "}"); end > objStart {
			return clean[objStart : end+1]
		}
	case arrStart >= 0:
		if end := strings.LastIndex(clean, "]"); end > arrStart {
			return clean[arrStart : end+1]
		}
	}
	return clean
}

// DecodeJSON parses model output into dst, tolerating code fences and prose
// around the payload.
func DecodeJSON(output string, dst interface{}) error {
	clean := ExtractJSON(output)
	if clean == "" {
		return fmt.Errorf("empty ai response")
	}
	if err := json.Unmarshal([]byte(clean), dst); err != nil {
		return fmt.Errorf("parse ai json: %w", err)
	}
	return nil
}

// ParseLabel matches model output against a closed label set, case and
// punctuation insensitive, returning fallback when nothing matches.
func ParseLabel(output string, allowed []string, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(output))
	normalized = strings.Trim(normalized, "\"'.`")
	for _, label := range allowed {
		if normalized == strings.ToLower(label) {
			return label
		}
	}
	// Second pass: the label may be embedded in a sentence.
	for _, label := range allowed {
		if strings.Contains(normalized, strings.ToLower(label)) {
			return label
		}
	}
	return fallback
}

// ParseStringList decodes a JSON array of strings, deduplicating
// case-insensitively and capping at max entries.
func ParseStringList(output string, max int) ([]string, error) {
	var items []string
	if err := DecodeJSON(output, &items); err != nil {
		return nil, err
	}
	if max <= 0 {
		max = len(items)
	}
	uniq := make([]string, 0, len(items))
	seen := make(map[string]bool)
	for _, item := range items {
		normalized := strings.TrimSpace(item)
		if normalized == "" {
			continue
		}
		key := strings.ToLower(normalized)
		if seen[key] {
			continue
		}
		seen[key] = true
		uniq = append(uniq, normalized)
		if len(uniq) >= max {
			break
		}
	}
	return uniq, nil
}
