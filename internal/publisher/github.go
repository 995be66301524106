package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v69/github"

	"readwise_digest/internal/domain"
	"readwise_digest/internal/retry"
)

// ErrConflict reports a version-marker mismatch: the target file changed
// between lookup and write. Never retried automatically, since a blind retry
// could overwrite a legitimate concurrent edit.
var ErrConflict = errors.New("target file changed upstream")

// Config holds GitHub publisher configuration. BaseURL overrides the API
// endpoint for tests.
type Config struct {
	Token   string
	Owner   string
	Repo    string
	BaseURL string
	Timeout time.Duration
	Retry   retry.Policy
}

// GitHub upserts digest files through the repository contents API.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	retry  retry.Policy
	logger *slog.Logger
}

// NewGitHub creates a new GitHub publisher.
func NewGitHub(cfg Config, logger *slog.Logger) (*GitHub, error) {
	client := github.NewClient(&http.Client{Timeout: cfg.Timeout}).WithAuthToken(cfg.Token)

	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("set base url: %w", err)
		}
	}

	return &GitHub{
		client: client,
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		retry:  cfg.Retry,
		logger: logger.With("publisher", "github", "repo", cfg.Owner+"/"+cfg.Repo),
	}, nil
}

// UpsertFile creates the file when absent and updates it in place when
// present, passing the existing blob SHA as the version marker. When the
// branch already holds identical bytes no commit is made.
func (g *GitHub) UpsertFile(ctx context.Context, path, branch, content, message string) (*domain.CommitResult, error) {
	existing, err := g.getFile(ctx, path, branch)
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", path, err)
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(branch),
	}

	if existing == nil {
		resp, err := g.writeFile(ctx, path, opts, false)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		g.logger.Info("created file", "path", path, "branch", branch, "commit", resp.GetSHA())
		return &domain.CommitResult{SHA: resp.GetSHA(), Path: path}, nil
	}

	if current, decodeErr := existing.GetContent(); decodeErr == nil && current == content {
		g.logger.Info("file unchanged, skipping commit", "path", path, "branch", branch)
		return &domain.CommitResult{SHA: existing.GetSHA(), Path: path, Unchanged: true}, nil
	}

	opts.SHA = github.String(existing.GetSHA())

	resp, err := g.writeFile(ctx, path, opts, true)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", path, err)
	}
	g.logger.Info("updated file", "path", path, "branch", branch, "commit", resp.GetSHA())
	return &domain.CommitResult{SHA: resp.GetSHA(), Path: path}, nil
}

// getFile returns the current file on the branch, or nil when it does not
// exist.
func (g *GitHub) getFile(ctx context.Context, path, branch string) (*github.RepositoryContent, error) {
	var file *github.RepositoryContent

	err := g.withRetry(ctx, "get contents", func() error {
		var err error
		file, _, _, err = g.client.Repositories.GetContents(ctx, g.owner, g.repo, path, &github.RepositoryContentGetOptions{
			Ref: branch,
		})
		return err
	})

	if statusOf(err) == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("path %s is not a file", path)
	}
	return file, nil
}

func (g *GitHub) writeFile(ctx context.Context, path string, opts *github.RepositoryContentFileOptions, update bool) (*github.RepositoryContentResponse, error) {
	var resp *github.RepositoryContentResponse

	err := g.withRetry(ctx, "write contents", func() error {
		var err error
		if update {
			resp, _, err = g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, path, opts)
		} else {
			resp, _, err = g.client.Repositories.CreateFile(ctx, g.owner, g.repo, path, opts)
		}
		return err
	})

	if statusOf(err) == http.StatusConflict {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// withRetry retries transient failures under the injected policy. Client
// errors, conflicts included, fail on the first attempt.
func (g *GitHub) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := 0

	for {
		err := fn()
		if err == nil {
			return nil
		}

		attempts++
		if !isTransient(err) || attempts >= g.retry.MaxAttempts {
			return err
		}

		delay := g.retry.Backoff(attempts)
		g.logger.Warn("github request failed, retrying",
			"op", op,
			"attempt", attempts,
			"backoff", delay,
			"error", err,
		)
		if err := retry.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) {
		return ghErr.Response != nil && ghErr.Response.StatusCode >= 500
	}

	// No structured response means the request never completed.
	return true
}

func statusOf(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}
