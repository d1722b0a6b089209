package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable marks a provider that is not configured or is refusing
// service. Callers treat it as non-retryable.
var ErrUnavailable = errors.New("ai provider unavailable")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompleteOptions struct {
	Temperature *float32
	MaxTokens   int
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Completion struct {
	Content      string `json:"content"`
	Usage        Usage  `json:"usage"`
	FinishReason string `json:"finish_reason"`
}

type IProvider interface {
	Name() string
	Complete(ctx context.Context, model string, messages []Message, opts CompleteOptions) (*Completion, error)
	Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error)
	EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error)
}

// IChatModel binds a provider to one chat model.
type IChatModel interface {
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*Completion, error)
}

// IEmbedder binds a provider to one embedding model.
type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error)
	ModelName() string
}

type chatModel struct {
	provider IProvider
	model    string
}

func NewChatModel(p IProvider, model string) IChatModel {
	return &chatModel{provider: p, model: model}
}

func (m *chatModel) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (*Completion, error) {
	return m.provider.Complete(ctx, m.model, messages, opts)
}

type embedder struct {
	provider IProvider
	model    string
}

func NewEmbedder(p IProvider, model string) IEmbedder {
	return &embedder{provider: p, model: model}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return e.provider.Embed(ctx, e.model, text, taskType)
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	return e.provider.EmbedBatch(ctx, e.model, texts, taskType)
}

func (e *embedder) ModelName() string {
	return e.model
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}
