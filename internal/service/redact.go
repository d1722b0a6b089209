package service

// Redactor scrubs sensitive fragments from raw content before it reaches a
// model provider. The default implementation passes content through; teams
// with stricter requirements plug in their own.
type Redactor interface {
	Redact(content string) string
}

type passthroughRedactor struct{}

func NewPassthroughRedactor() Redactor {
	return passthroughRedactor{}
}

func (passthroughRedactor) Redact(content string) string {
	return content
}
