package ports

import (
	"context"

	"github.com/terratensor/geohierarchy/internal/core/domain"
)

// Fetcher retrieves a named remote archive into local storage and returns its path.
type Fetcher interface {
	Fetch(ctx context.Context, remoteName string) (string, error)
}

// Extractor expands a local archive into the storage directory.
type Extractor interface {
	Extract(archivePath string) ([]string, error)
}

// RelationRepository stores flattened hierarchy edges in a search index.
type RelationRepository interface {
	ResetRelations(ctx context.Context) error
	InsertBatchRelations(ctx context.Context, relations []domain.HierarchyRelation) error
}
