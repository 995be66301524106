package readwise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"readwise_digest/internal/digest"
	"readwise_digest/internal/domain"
	"readwise_digest/internal/retry"
)

// Config holds Readwise client configuration.
type Config struct {
	Token             string
	ReaderBaseURL     string
	HighlightsBaseURL string
	PageSize          int
	Timeout           time.Duration
	Retry             retry.Policy
	RateLimitRetry    retry.Policy
}

// Client fetches archived documents and highlights from the two Readwise
// APIs. Authentication is a static bearer token; the client does not refresh
// it.
type Client struct {
	httpClient        *http.Client
	token             string
	readerBaseURL     string
	highlightsBaseURL string
	pageSize          int
	retry             retry.Policy
	rateLimitRetry    retry.Policy
	logger            *slog.Logger
}

// New creates a new Readwise client.
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		token:             cfg.Token,
		readerBaseURL:     cfg.ReaderBaseURL,
		highlightsBaseURL: cfg.HighlightsBaseURL,
		pageSize:          cfg.PageSize,
		retry:             cfg.Retry,
		rateLimitRetry:    cfg.RateLimitRetry,
		logger:            logger.With("source", "readwise"),
	}
}

// FetchDocuments returns every document archived inside the window,
// following the page cursor until the upstream stops returning one. The
// upstream filter works on "updated in range", which is looser than
// "archived in range", so the result is re-filtered client-side.
func (c *Client) FetchDocuments(ctx context.Context, window domain.DateWindow) ([]domain.Document, error) {
	var all []domain.Document
	cursor := ""

	for {
		q := url.Values{}
		q.Set("location", "archive")
		q.Set("updatedAfter", window.Start.Format(time.RFC3339))
		if cursor != "" {
			q.Set("pageCursor", cursor)
		}

		var page documentsPage
		if err := c.getJSON(ctx, c.readerBaseURL+"/list/?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("fetch documents page: %w", err)
		}

		all = append(all, c.transformDocuments(page.Results)...)

		c.logger.Debug("fetched document page",
			"page_items", len(page.Results),
			"total", len(all),
		)

		if page.NextPageCursor == nil || *page.NextPageCursor == "" {
			break
		}
		cursor = *page.NextPageCursor
	}

	return digest.FilterDocuments(all, window), nil
}

// FetchHighlights returns every highlight created inside the window, using
// the same cursor contract as the document endpoint.
func (c *Client) FetchHighlights(ctx context.Context, window domain.DateWindow) ([]domain.Highlight, error) {
	var all []domain.Highlight
	cursor := ""

	for {
		q := url.Values{}
		q.Set("highlighted_at__gt", window.Start.Format(time.RFC3339))
		q.Set("page_size", strconv.Itoa(c.pageSize))
		if cursor != "" {
			q.Set("pageCursor", cursor)
		}

		var page highlightsPage
		if err := c.getJSON(ctx, c.highlightsBaseURL+"/highlights/?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("fetch highlights page: %w", err)
		}

		all = append(all, c.transformHighlights(page.Results)...)

		c.logger.Debug("fetched highlight page",
			"page_items", len(page.Results),
			"total", len(all),
		)

		if page.NextPageCursor == nil || *page.NextPageCursor == "" {
			break
		}
		cursor = *page.NextPageCursor
	}

	return digest.FilterHighlights(all, window), nil
}

// getJSON performs a GET with two retry budgets: rate-limit responses use the
// rate-limit policy, timeouts and 5xx the smaller transient policy. Other 4xx
// fail immediately.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	transientAttempts := 0
	rateAttempts := 0

	for {
		err := c.doRequest(ctx, rawURL, out)
		if err == nil {
			return nil
		}

		var limited *rateLimited
		var temp *transient

		switch {
		case errors.As(err, &limited):
			rateAttempts++
			if rateAttempts >= c.rateLimitRetry.MaxAttempts {
				return &RateLimitError{Attempts: rateAttempts}
			}
			delay := c.rateLimitRetry.Backoff(rateAttempts)
			if limited.retryAfter > delay {
				delay = limited.retryAfter
			}
			if delay > c.rateLimitRetry.MaxBackoff {
				delay = c.rateLimitRetry.MaxBackoff
			}
			c.logger.Warn("rate limited, backing off",
				"attempt", rateAttempts,
				"backoff", delay,
			)
			if err := retry.Sleep(ctx, delay); err != nil {
				return err
			}

		case errors.As(err, &temp):
			transientAttempts++
			if transientAttempts >= c.retry.MaxAttempts {
				return fmt.Errorf("after %d attempts: %w", transientAttempts, temp.err)
			}
			delay := c.retry.Backoff(transientAttempts)
			c.logger.Warn("request failed, retrying",
				"attempt", transientAttempts,
				"backoff", delay,
				"error", temp.err,
			)
			if err := retry.Sleep(ctx, delay); err != nil {
				return err
			}

		default:
			return err
		}
	}
}

func (c *Client) doRequest(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &transient{err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return &rateLimited{retryAfter: parseRetryAfter(resp)}

	case resp.StatusCode >= 500:
		return &transient{err: fmt.Errorf("unexpected status: %d", resp.StatusCode)}

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

func parseRetryAfter(resp *http.Response) time.Duration {
	seconds, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func (c *Client) transformDocuments(records []documentRecord) []domain.Document {
	docs := make([]domain.Document, 0, len(records))

	for _, r := range records {
		doc := domain.Document{
			ID:        r.ID,
			Title:     r.Title,
			Category:  r.Category,
			Source:    r.Source,
			Location:  r.Location,
			WordCount: r.WordCount,
		}

		if r.Author != nil && *r.Author != "" {
			doc.Author = r.Author
		}

		created, ok := c.parseTime(r.ID, "created_at", r.CreatedAt)
		if !ok {
			continue
		}
		archived, ok := c.parseTime(r.ID, "last_moved_at", r.LastMovedAt)
		if !ok {
			continue
		}
		doc.CreatedAt = created
		doc.ArchivedAt = archived

		docs = append(docs, doc)
	}

	return docs
}

func (c *Client) transformHighlights(records []highlightRecord) []domain.Highlight {
	highlights := make([]domain.Highlight, 0, len(records))

	for _, r := range records {
		if r.Text == "" {
			continue
		}

		created, ok := c.parseTime(strconv.FormatInt(r.ID, 10), "highlighted_at", r.HighlightedAt)
		if !ok {
			continue
		}

		h := domain.Highlight{
			ID:         r.ID,
			DocumentID: r.DocumentID,
			Text:       r.Text,
			CreatedAt:  created,
		}
		if r.Note != nil && *r.Note != "" {
			h.Note = r.Note
		}

		highlights = append(highlights, h)
	}

	return highlights
}

// parseTime decodes an RFC 3339 timestamp in UTC. Empty values yield the zero
// time and keep the record; malformed values drop it with a warning.
func (c *Client) parseTime(id, field, value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		c.logger.Warn("failed to parse timestamp",
			"id", id,
			"field", field,
			"value", value,
		)
		return time.Time{}, false
	}
	return t.UTC(), true
}
