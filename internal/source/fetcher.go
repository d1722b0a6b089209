package source

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/strata-kb/strata/internal/model"
)

// Fetcher pulls raw content items from one configured source. Implementations
// exist per source kind; chat-channel connectors plug in through Register.
type Fetcher interface {
	SourceType() model.SourceType
	SourceID() string
	Fetch(ctx context.Context) ([]model.ContentItem, error)
}

type Factory func(name string, args interface{}) (Fetcher, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(kind string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(kind))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(kind string, name string, args interface{}) (Fetcher, error) {
	key := strings.ToLower(strings.TrimSpace(kind))
	if key == "" {
		return nil, fmt.Errorf("source kind is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported source kind: %s", kind)
	}
	return factory(name, args)
}
