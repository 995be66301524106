package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"readwise_digest/internal/config"
	"readwise_digest/internal/digest"
	"readwise_digest/internal/domain"
	"readwise_digest/internal/render"
)

// Stage names the pipeline step a run was in when it failed.
type Stage string

const (
	StageFetching   Stage = "fetching"
	StagePublishing Stage = "publishing"

	// Aggregation and rendering are pure and cannot fail at runtime; the
	// stages are named so callers matching on Stage cover the full pipeline.
	StageAggregating Stage = "aggregating"
	StageRendering   Stage = "rendering"
)

// StageError is the single failure outcome of a run: the stage that failed
// and the underlying cause. Later stages are never reached.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// DigestService runs the digest pipeline: fetch one window of activity,
// aggregate it, render markdown, publish the file. Single-pass; nothing is
// published unless every earlier stage succeeded.
type DigestService struct {
	source    Source
	publisher Publisher
	logger    *slog.Logger
	config    config.DigestConfig
	now       func() time.Time
}

func NewDigestService(
	source Source,
	publisher Publisher,
	logger *slog.Logger,
	cfg config.DigestConfig,
) *DigestService {
	return &DigestService{
		source:    source,
		publisher: publisher,
		logger:    logger,
		config:    cfg,
		now:       time.Now,
	}
}

func (s *DigestService) Run(ctx context.Context) (*domain.RunResult, error) {
	startTime := time.Now()
	window := domain.WindowEnding(s.now(), s.config.WindowDays)
	logger := s.logger.With("run_id", uuid.NewString())

	logger.Info("starting digest run",
		"window_start", window.Start,
		"window_end", window.End,
	)

	documents, err := s.source.FetchDocuments(ctx, window)
	if err != nil {
		return nil, s.fail(logger, StageFetching, fmt.Errorf("fetch documents: %w", err))
	}

	highlights, err := s.source.FetchHighlights(ctx, window)
	if err != nil {
		return nil, s.fail(logger, StageFetching, fmt.Errorf("fetch highlights: %w", err))
	}

	// An empty window is a valid run and still produces a minimal digest.
	logger.Info("fetched activity",
		"documents", len(documents),
		"highlights", len(highlights),
	)

	summary := digest.Aggregate(documents, highlights)
	logger.Debug("aggregated summary",
		"total_words", summary.TotalWords,
		"categories", len(summary.ByCategory),
	)

	content := render.Digest(summary, window)

	path := fmt.Sprintf(s.config.PathTemplate, window.StartDate())
	message := fmt.Sprintf(s.config.CommitMessage, window.StartDate())

	commit, err := s.publisher.UpsertFile(ctx, path, s.config.TargetBranch, content, message)
	if err != nil {
		return nil, s.fail(logger, StagePublishing, err)
	}

	result := &domain.RunResult{
		Window:     window,
		Documents:  summary.DocumentCount,
		Highlights: summary.HighlightCount,
		TotalWords: summary.TotalWords,
		Path:       path,
		CommitSHA:  commit.SHA,
		Unchanged:  commit.Unchanged,
		Duration:   time.Since(startTime),
	}

	logger.Info("digest run completed",
		"documents", result.Documents,
		"highlights", result.Highlights,
		"path", result.Path,
		"commit", result.CommitSHA,
		"unchanged", result.Unchanged,
		"duration", result.Duration,
	)

	return result, nil
}

func (s *DigestService) fail(logger *slog.Logger, stage Stage, err error) error {
	logger.Error("digest run failed",
		"stage", string(stage),
		"error", err,
	)
	return &StageError{Stage: stage, Err: err}
}
