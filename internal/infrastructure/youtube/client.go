package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"VideoCurator/internal/catalog"
	"VideoCurator/internal/config"
	"VideoCurator/internal/domain"
	"VideoCurator/internal/quota"
)

const providerName = "youtube"

// Client implements catalog.Provider against the YouTube Data API v3.
// Every request first reserves quota units with the guard and waits on
// the rate limiter, so a single client instance paces all callers.
type Client struct {
	baseURL string
	apiKey  string
	guard   *quota.Guard
	limiter *rate.Limiter
	http    *http.Client
	logger  *slog.Logger
}

var _ catalog.Provider = (*Client)(nil)

// NewClient builds a catalog client from configuration.
func NewClient(cfg config.CatalogConfig, guard *quota.Guard, logger *slog.Logger) *Client {
	rps := rate.Limit(cfg.RequestsPerSec)
	if cfg.RequestsPerSec <= 0 {
		rps = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		guard:   guard,
		limiter: rate.NewLimiter(rps, burst),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// Name returns the registry key for this provider.
func (c *Client) Name() string { return providerName }

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet snippet `json:"snippet"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID             string  `json:"id"`
		Snippet        snippet `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
			LikeCount string `json:"likeCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type snippet struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelTitle string `json:"channelTitle"`
	PublishedAt  string `json:"publishedAt"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// Search runs one keyword search and returns lightweight candidate refs.
// A search call costs far more quota than a details call, so the guard
// is consulted before any network traffic happens.
func (c *Client) Search(ctx context.Context, req catalog.Request) ([]domain.CandidateRef, error) {
	if err := c.guard.Reserve(quota.CallSearch); err != nil {
		return nil, fmt.Errorf("search %q: %w", req.Query, err)
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("order", "relevance")
	params.Set("q", req.Query)
	params.Set("maxResults", strconv.Itoa(maxResults))

	var payload searchResponse
	if err := c.get(ctx, "/search", params, &payload); err != nil {
		return nil, fmt.Errorf("search %q: %w", req.Query, err)
	}
	c.guard.Commit(quota.CallSearch)

	refs := make([]domain.CandidateRef, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.ID.VideoID == "" {
			continue
		}
		refs = append(refs, domain.CandidateRef{
			VideoID:      item.ID.VideoID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  parseTimestamp(item.Snippet.PublishedAt),
		})
	}

	return refs, nil
}

// Details fetches duration and engagement statistics for a single video.
func (c *Client) Details(ctx context.Context, videoID string) (domain.CandidateDetails, error) {
	if err := c.guard.Reserve(quota.CallDetails); err != nil {
		return domain.CandidateDetails{}, fmt.Errorf("details %s: %w", videoID, err)
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", videoID)

	var payload videosResponse
	if err := c.get(ctx, "/videos", params, &payload); err != nil {
		return domain.CandidateDetails{}, fmt.Errorf("details %s: %w", videoID, err)
	}
	c.guard.Commit(quota.CallDetails)

	if len(payload.Items) == 0 {
		return domain.CandidateDetails{}, fmt.Errorf("details %s: video not found", videoID)
	}

	item := payload.Items[0]
	seconds, err := parseDuration(item.ContentDetails.Duration)
	if err != nil {
		c.logger.Warn("unparseable video duration",
			"video_id", videoID, "duration", item.ContentDetails.Duration)
		seconds = 0
	}

	return domain.CandidateDetails{
		CandidateRef: domain.CandidateRef{
			VideoID:      item.ID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  parseTimestamp(item.Snippet.PublishedAt),
		},
		Description:     item.Snippet.Description,
		DurationSeconds: seconds,
		ViewCount:       parseCount(item.Statistics.ViewCount),
		LikeCount:       parseCount(item.Statistics.LikeCount),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.asAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// asAPIError maps provider error payloads onto local errors. A quota
// denial marks the guard exhausted so later calls fail fast without
// touching the network again.
func (c *Client) asAPIError(resp *http.Response) error {
	var payload apiError
	_ = json.NewDecoder(resp.Body).Decode(&payload)

	if quotaDenied(resp.StatusCode, payload) {
		c.guard.MarkExhausted(time.Time{})
		c.logger.Warn("catalog quota exhausted",
			"status", resp.Status, "resets_at", c.guard.NextReset())
		return fmt.Errorf("catalog denied request: %w", quota.ErrExhausted)
	}

	if payload.Error.Message != "" {
		return fmt.Errorf("catalog error %s: %s", resp.Status, payload.Error.Message)
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}

func quotaDenied(status int, payload apiError) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	if status != http.StatusForbidden {
		return false
	}
	for _, e := range payload.Error.Errors {
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
			return true
		}
	}
	return false
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// parseCount reads the string-encoded counters the statistics part uses.
func parseCount(value string) int64 {
	if value == "" {
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
