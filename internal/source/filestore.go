package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/strata-kb/strata/internal/config"
	"github.com/strata-kb/strata/internal/filestore"
	"github.com/strata-kb/strata/internal/model"
)

const maxObjectBytes = 1 << 20 // 1 MiB per object is plenty for text sources

type filestoreArgs struct {
	Store  config.FileStoreConfig `json:"store"`
	Prefix string                 `json:"prefix"`
	Author string                 `json:"author"`
}

type filestoreFetcher struct {
	name   string
	store  filestore.Store
	prefix string
	author string
}

func init() {
	Register("file-store", createFilestoreFetcher)
}

func createFilestoreFetcher(name string, args interface{}) (Fetcher, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode source config: %w", err)
	}
	cfg := &filestoreArgs{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode source config: %w", err)
	}
	store, err := filestore.New(cfg.Store)
	if err != nil {
		return nil, err
	}
	return &filestoreFetcher{
		name:   name,
		store:  store,
		prefix: cfg.Prefix,
		author: cfg.Author,
	}, nil
}

func (f *filestoreFetcher) SourceType() model.SourceType {
	return model.SourceTypeFileStore
}

func (f *filestoreFetcher) SourceID() string {
	return f.name
}

func (f *filestoreFetcher) Fetch(ctx context.Context) ([]model.ContentItem, error) {
	objects, err := f.store.List(ctx, f.prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	items := make([]model.ContentItem, 0, len(objects))
	for _, obj := range objects {
		if !isTextObject(obj.Key) {
			continue
		}
		content, err := f.readObject(ctx, obj.Key)
		if err != nil {
			return nil, fmt.Errorf("read object %s: %w", obj.Key, err)
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		items = append(items, model.ContentItem{
			ID:         obj.Key,
			SourceType: model.SourceTypeFileStore,
			SourceID:   f.name,
			Content:    content,
			Author:     f.author,
			Timestamp:  obj.ModTime,
			URL:        obj.Key,
		})
	}
	return items, nil
}

func (f *filestoreFetcher) readObject(ctx context.Context, key string) (string, error) {
	rc, err := f.store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxObjectBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func isTextObject(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".md", ".markdown", ".txt", ".text", "":
		return true
	default:
		return false
	}
}
