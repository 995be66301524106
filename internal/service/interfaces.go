package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"readwise_digest/internal/domain"
)

// Source retrieves one window of reading activity, fully materialized and
// window-filtered.
type Source interface {
	FetchDocuments(ctx context.Context, window domain.DateWindow) ([]domain.Document, error)
	FetchHighlights(ctx context.Context, window domain.DateWindow) ([]domain.Highlight, error)
}

// Publisher upserts one rendered digest file into the target repository.
type Publisher interface {
	UpsertFile(ctx context.Context, path, branch, content, message string) (*domain.CommitResult, error)
}
