package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"readwise_digest/internal/config"
	"readwise_digest/internal/domain"
	"readwise_digest/internal/publisher"
	"readwise_digest/internal/service/mocks"
)

type DigestServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source *mocks.MockSource
	pub    *mocks.MockPublisher

	service *DigestService
	cfg     config.DigestConfig
	window  domain.DateWindow
	logger  *slog.Logger
}

func (s *DigestServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.pub = mocks.NewMockPublisher(s.ctrl)

	s.cfg = config.DigestConfig{
		TargetBranch:  "main",
		WindowDays:    7,
		PathTemplate:  "content/posts/%s-weekly-reading-digest.md",
		CommitMessage: "feat: add weekly reading digest %s",
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = NewDigestService(s.source, s.pub, s.logger, s.cfg)

	// Pin the clock: window is [2024-01-01, 2024-01-08) UTC.
	s.service.now = func() time.Time {
		return time.Date(2024, 1, 8, 15, 30, 0, 0, time.UTC)
	}
	s.window = domain.DateWindow{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC),
	}
}

func (s *DigestServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestDigestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DigestServiceTestSuite))
}

func (s *DigestServiceTestSuite) sampleActivity() ([]domain.Document, []domain.Highlight) {
	words := 1200
	documents := []domain.Document{
		{
			ID:         "doc-1",
			Title:      "On Reading",
			Category:   "article",
			Source:     "rss",
			Location:   "archive",
			WordCount:  &words,
			CreatedAt:  s.window.Start,
			ArchivedAt: s.window.Start.Add(36 * time.Hour),
		},
	}
	highlights := []domain.Highlight{
		{ID: 7, DocumentID: "doc-1", Text: "worth keeping", CreatedAt: s.window.Start.Add(40 * time.Hour)},
	}
	return documents, highlights
}

func (s *DigestServiceTestSuite) TestRun_PublishesDigest() {
	ctx := context.Background()
	documents, highlights := s.sampleActivity()

	s.source.EXPECT().FetchDocuments(ctx, s.window).Return(documents, nil)
	s.source.EXPECT().FetchHighlights(ctx, s.window).Return(highlights, nil)

	var published string
	s.pub.EXPECT().
		UpsertFile(ctx, "content/posts/2024-01-01-weekly-reading-digest.md", "main", gomock.Any(), "feat: add weekly reading digest 2024-01-01").
		DoAndReturn(func(_ context.Context, _, _, content, _ string) (*domain.CommitResult, error) {
			published = content
			return &domain.CommitResult{SHA: "commit-1", Path: "content/posts/2024-01-01-weekly-reading-digest.md"}, nil
		})

	result, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(1, result.Documents)
	s.Equal(1, result.Highlights)
	s.Equal(1200, result.TotalWords)
	s.Equal("commit-1", result.CommitSHA)
	s.Equal("content/posts/2024-01-01-weekly-reading-digest.md", result.Path)
	s.False(result.Unchanged)

	s.Contains(published, "Weekly Reading Digest - 2024-01-01 to 2024-01-08")
	s.Contains(published, "- **On Reading**")
	s.Contains(published, `1. "worth keeping"`)
}

func (s *DigestServiceTestSuite) TestRun_IdempotentContent() {
	ctx := context.Background()

	var first, second string

	documents, highlights := s.sampleActivity()
	s.source.EXPECT().FetchDocuments(ctx, s.window).Return(documents, nil).Times(2)
	s.source.EXPECT().FetchHighlights(ctx, s.window).Return(highlights, nil).Times(2)

	call := 0
	s.pub.EXPECT().
		UpsertFile(ctx, gomock.Any(), "main", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, path, _, content, _ string) (*domain.CommitResult, error) {
			call++
			if call == 1 {
				first = content
				return &domain.CommitResult{SHA: "commit-1", Path: path}, nil
			}
			second = content
			return &domain.CommitResult{SHA: "commit-1", Path: path, Unchanged: true}, nil
		}).
		Times(2)

	_, err := s.service.Run(ctx)
	s.NoError(err)

	result, err := s.service.Run(ctx)
	s.NoError(err)

	s.Equal(first, second, "unchanged upstream data must render identical bytes")
	s.True(result.Unchanged)
}

func (s *DigestServiceTestSuite) TestRun_EmptyWindowStillPublishes() {
	ctx := context.Background()

	s.source.EXPECT().FetchDocuments(ctx, s.window).Return(nil, nil)
	s.source.EXPECT().FetchHighlights(ctx, s.window).Return(nil, nil)

	var published string
	s.pub.EXPECT().
		UpsertFile(ctx, gomock.Any(), "main", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, path, _, content, _ string) (*domain.CommitResult, error) {
			published = content
			return &domain.CommitResult{SHA: "commit-1", Path: path}, nil
		})

	result, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(0, result.Documents)
	s.Equal(0, result.Highlights)
	s.Contains(published, "- **Documents Archived**: 0")
}

func (s *DigestServiceTestSuite) TestRun_FetchDocumentsFailure() {
	ctx := context.Background()

	s.source.EXPECT().FetchDocuments(ctx, s.window).Return(nil, errors.New("boom"))

	result, err := s.service.Run(ctx)

	s.Nil(result)

	var stageErr *StageError
	s.ErrorAs(err, &stageErr)
	s.Equal(StageFetching, stageErr.Stage)
}

func (s *DigestServiceTestSuite) TestRun_FetchHighlightsFailure() {
	ctx := context.Background()

	s.source.EXPECT().FetchDocuments(ctx, s.window).Return(nil, nil)
	s.source.EXPECT().FetchHighlights(ctx, s.window).Return(nil, errors.New("boom"))

	result, err := s.service.Run(ctx)

	s.Nil(result)

	var stageErr *StageError
	s.ErrorAs(err, &stageErr)
	s.Equal(StageFetching, stageErr.Stage)
}

func (s *DigestServiceTestSuite) TestRun_PublishConflict() {
	ctx := context.Background()

	s.source.EXPECT().FetchDocuments(ctx, s.window).Return(nil, nil)
	s.source.EXPECT().FetchHighlights(ctx, s.window).Return(nil, nil)
	s.pub.EXPECT().
		UpsertFile(ctx, gomock.Any(), "main", gomock.Any(), gomock.Any()).
		Return(nil, publisher.ErrConflict)

	result, err := s.service.Run(ctx)

	s.Nil(result)

	var stageErr *StageError
	s.ErrorAs(err, &stageErr)
	s.Equal(StagePublishing, stageErr.Stage)
	s.ErrorIs(err, publisher.ErrConflict)
}
