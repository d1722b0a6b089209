package model

type SourceType string

const (
	SourceTypeChatChannel SourceType = "chat-channel"
	SourceTypeFileStore   SourceType = "file-store"
)

// ContentItem is one atomic unit of raw source content. Items are immutable
// once fetched; the pipeline only reads them.
type ContentItem struct {
	ID         string     `json:"id"`
	SourceType SourceType `json:"source_type"`
	SourceID   string     `json:"source_id"`
	Content    string     `json:"content"`
	Author     string     `json:"author,omitempty"`
	Timestamp  int64      `json:"timestamp"`
	URL        string     `json:"url,omitempty"`
}

// SourceReference records where a draft's content came from.
type SourceReference struct {
	SourceType SourceType `json:"source_type"`
	SourceID   string     `json:"source_id"`
	Author     string     `json:"author,omitempty"`
	URL        string     `json:"url,omitempty"`
	Timestamp  int64      `json:"timestamp"`
}
