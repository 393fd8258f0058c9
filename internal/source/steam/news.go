package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"steamnews/internal/domain"
)

// Config holds the news client configuration.
type Config struct {
	NewsURL        string
	Count          int
	MaxLength      int
	Timeout        time.Duration
	UserAgent      string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client fetches per-app news from the Steam Web API.
type Client struct {
	httpClient     *http.Client
	newsURL        string
	count          int
	maxLength      int
	userAgent      string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		newsURL:        cfg.NewsURL,
		count:          cfg.Count,
		maxLength:      cfg.MaxLength,
		userAgent:      cfg.UserAgent,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("component", "steam_news"),
		now:            time.Now,
	}
}

// FetchNews returns the current news batch for sourceID. Failures are
// returned as *FetchError.
func (c *Client) FetchNews(ctx context.Context, sourceID int64) (*domain.NewsBatch, error) {
	u, err := c.requestURL(sourceID)
	if err != nil {
		return nil, &FetchError{SourceID: sourceID, Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		batch, err := c.doRequest(ctx, u, sourceID)
		if err == nil {
			return batch, nil
		}
		lastErr = err

		if attempt == c.maxAttempts || !retryable(err) {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Warn("request failed, retrying",
			"source_id", sourceID,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, &FetchError{SourceID: sourceID, Err: ctx.Err()}
		case <-time.After(backoff):
		}
	}

	return nil, lastErr
}

func (c *Client) requestURL(sourceID int64) (string, error) {
	u, err := url.Parse(c.newsURL)
	if err != nil {
		return "", fmt.Errorf("parse news url: %w", err)
	}
	q := u.Query()
	q.Set("format", "json")
	q.Set("maxlength", strconv.Itoa(c.maxLength))
	q.Set("count", strconv.Itoa(c.count))
	q.Set("appid", strconv.FormatInt(sourceID, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) doRequest(ctx context.Context, u string, sourceID int64) (*domain.NewsBatch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{SourceID: sourceID, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{SourceID: sourceID, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			SourceID:   sourceID,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	var body newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &FetchError{SourceID: sourceID, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if body.AppNews == nil {
		return nil, &FetchError{SourceID: sourceID, StatusCode: resp.StatusCode, Err: errors.New("response has no appnews")}
	}

	return &domain.NewsBatch{
		SourceID:  sourceID,
		Items:     transform(body.AppNews.NewsItems, sourceID),
		ExpiresAt: c.expiresAt(resp.Header.Get("Expires")),
	}, nil
}

// expiresAt parses the Expires header, falling back to now so that an
// unparsable hint never suppresses the next fetch.
func (c *Client) expiresAt(header string) time.Time {
	if header == "" {
		return c.now()
	}
	t, err := http.ParseTime(header)
	if err != nil {
		c.logger.Debug("unparsable expires header", "expires", header)
		return c.now()
	}
	return t
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}

// retryable reports whether another attempt could succeed. Client errors
// other than rate limiting are final.
func retryable(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	if errors.Is(fe.Err, context.Canceled) || errors.Is(fe.Err, context.DeadlineExceeded) {
		return false
	}
	switch {
	case fe.StatusCode == 0:
		return true
	case fe.StatusCode == http.StatusTooManyRequests:
		return true
	case fe.StatusCode >= 500:
		return true
	}
	return false
}

func transform(items []newsItem, sourceID int64) []domain.NewsItem {
	out := make([]domain.NewsItem, 0, len(items))
	for _, n := range items {
		format := domain.FormatPlain
		if n.FeedType == feedTypeBBCode {
			format = domain.FormatBBCode
		}
		nominal := n.AppID
		if nominal == 0 {
			nominal = sourceID
		}
		out = append(out, domain.NewsItem{
			ID:            n.GID,
			Title:         n.Title,
			URL:           n.URL,
			IsExternalURL: n.IsExternalURL,
			Author:        n.Author,
			Content:       n.Contents,
			FeedLabel:     n.FeedLabel,
			FeedName:      n.FeedName,
			Format:        format,
			PublishedAt:   time.Unix(n.Date, 0).UTC(),
			SourceID:      nominal,
		})
	}
	return out
}
