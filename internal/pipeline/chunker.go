package pipeline

import "strings"

// Token counts are estimated at roughly 4 characters per token. Callers must
// treat the estimate as an approximation, not an exact tokenizer count.
const charsPerToken = 4

type Chunk struct {
	Content     string `json:"content"`
	ChunkIndex  int    `json:"chunk_index"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	TokenCount  int    `json:"token_count"`
}

type ChunkOptions struct {
	MaxTokens          int
	OverlapTokens      int
	PreserveSentences  bool
	PreserveParagraphs bool
}

func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{
		MaxTokens:          500,
		OverlapTokens:      50,
		PreserveSentences:  true,
		PreserveParagraphs: true,
	}
}

func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// ChunkText splits text into overlapping windows bounded by opts.MaxTokens.
// Every byte of the input is covered by at least one chunk, and the window
// start always advances by at least one byte, so chunking terminates on any
// input. Whitespace-only input yields a single empty chunk.
func ChunkText(text string, opts ChunkOptions) []Chunk {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultChunkOptions().MaxTokens
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = 0
	}
	if strings.TrimSpace(text) == "" {
		return []Chunk{{Content: "", ChunkIndex: 0, StartOffset: 0, EndOffset: 0, TokenCount: 0}}
	}

	maxChars := opts.MaxTokens * charsPerToken
	overlapChars := opts.OverlapTokens * charsPerToken
	if len(text) <= maxChars {
		return []Chunk{{
			Content:     text,
			ChunkIndex:  0,
			StartOffset: 0,
			EndOffset:   len(text),
			TokenCount:  EstimateTokens(text),
		}}
	}

	chunks := make([]Chunk, 0, len(text)/maxChars+1)
	start := 0
	index := 0
	for start < len(text) {
		end := start + maxChars
		if end > len(text) {
			end = len(text)
		}
		window := text[start:end]
		if end < len(text) {
			window = trimToBoundary(window, opts)
		}
		chunks = append(chunks, Chunk{
			Content:     window,
			ChunkIndex:  index,
			StartOffset: start,
			EndOffset:   start + len(window),
			TokenCount:  EstimateTokens(window),
		})
		index++
		if start+len(window) >= len(text) {
			break
		}
		step := len(window) - overlapChars
		if step < 1 {
			step = 1
		}
		start += step
	}
	return chunks
}

// trimToBoundary pulls the window end back to a natural break. Paragraph
// breaks win when they keep at least 30% of the window; sentence breaks need
// at least 50%.
func trimToBoundary(window string, opts ChunkOptions) string {
	if opts.PreserveParagraphs {
		if cut := strings.LastIndex(window, "\n\n"); cut >= 0 && cut*10 >= len(window)*3 {
			return window[:cut]
		}
	}
	if opts.PreserveSentences {
		if cut := strings.LastIndexAny(window, ".!?"); cut >= 0 && (cut+1)*2 >= len(window) {
			return window[:cut+1]
		}
	}
	return window
}

// MergeSmall folds chunks below minTokens into their neighbor so near-empty
// fragments never reach the embedding service. A trailing small chunk merges
// backward; all others merge into the following chunk. Indexes are rebuilt.
func MergeSmall(chunks []Chunk, minTokens int) []Chunk {
	if minTokens <= 0 || len(chunks) <= 1 {
		return chunks
	}
	merged := make([]Chunk, 0, len(chunks))
	var carry *Chunk
	for i := range chunks {
		cur := chunks[i]
		if carry != nil {
			cur = Chunk{
				Content:     carry.Content + cur.Content[overlapLen(*carry, cur):],
				StartOffset: carry.StartOffset,
				EndOffset:   cur.EndOffset,
			}
			cur.TokenCount = EstimateTokens(cur.Content)
			carry = nil
		}
		if cur.TokenCount < minTokens && i < len(chunks)-1 {
			carry = &cur
			continue
		}
		merged = append(merged, cur)
	}
	if carry != nil {
		merged = append(merged, *carry)
	}
	// A small final chunk joins its predecessor.
	if len(merged) >= 2 && merged[len(merged)-1].TokenCount < minTokens {
		last := merged[len(merged)-1]
		prev := merged[len(merged)-2]
		prev.Content = prev.Content + last.Content[overlapLen(prev, last):]
		prev.EndOffset = last.EndOffset
		prev.TokenCount = EstimateTokens(prev.Content)
		merged = append(merged[:len(merged)-2], prev)
	}
	for i := range merged {
		merged[i].ChunkIndex = i
	}
	return merged
}

// overlapLen reports how many bytes of b's content are already covered by a,
// so merged content does not duplicate the overlap region.
func overlapLen(a, b Chunk) int {
	if b.StartOffset >= a.EndOffset {
		return 0
	}
	n := a.EndOffset - b.StartOffset
	if n > len(b.Content) {
		n = len(b.Content)
	}
	return n
}
