package service

import (
	"context"

	"github.com/strata-kb/strata/internal/model"
)

type DocumentLister interface {
	GetByID(ctx context.Context, orgID, docID string) (*model.Document, error)
	List(ctx context.Context, orgID, categoryID, query string, limit, offset uint) ([]model.Document, error)
}

type VersionLister interface {
	ListByDocument(ctx context.Context, orgID, docID string) ([]model.DocumentVersionSummary, error)
	GetByVersion(ctx context.Context, orgID, docID string, version int) (*model.DocumentVersion, error)
}

type DocumentService struct {
	documents DocumentLister
	versions  VersionLister
}

func NewDocumentService(documents DocumentLister, versions VersionLister) *DocumentService {
	return &DocumentService{documents: documents, versions: versions}
}

func (s *DocumentService) Get(ctx context.Context, orgID, docID string) (*model.Document, error) {
	return s.documents.GetByID(ctx, orgID, docID)
}

func (s *DocumentService) List(ctx context.Context, orgID, categoryID, query string, limit, offset uint) ([]model.Document, error) {
	return s.documents.List(ctx, orgID, categoryID, query, limit, offset)
}

func (s *DocumentService) ListVersions(ctx context.Context, orgID, docID string) ([]model.DocumentVersionSummary, error) {
	if _, err := s.documents.GetByID(ctx, orgID, docID); err != nil {
		return nil, err
	}
	return s.versions.ListByDocument(ctx, orgID, docID)
}

func (s *DocumentService) GetVersion(ctx context.Context, orgID, docID string, version int) (*model.DocumentVersion, error) {
	return s.versions.GetByVersion(ctx, orgID, docID, version)
}
