package liveness

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"VideoCurator/internal/ports"
)

// unavailablePhrases are the watch-page strings that positively identify
// a deleted or privated video. Transport errors never match.
var unavailablePhrases = []string{
	"video unavailable",
	"this video isn't available",
	"this video is private",
	"this video has been removed",
}

// Checker probes each stored video's public watch page and retires
// records whose videos are gone upstream.
type Checker struct {
	knowledge ports.KnowledgeRepository
	client    *http.Client
	logger    *slog.Logger
}

// NewChecker wires an HTTP client; a nil client gets a 20s-timeout default.
func NewChecker(knowledge ports.KnowledgeRepository, client *http.Client, logger *slog.Logger) *Checker {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Checker{knowledge: knowledge, client: client, logger: logger}
}

// CheckAll sweeps every active record and returns how many were retired.
// A record is only marked on a positive unavailability signal; probe
// failures are logged and leave it untouched.
func (c *Checker) CheckAll(ctx context.Context) (int, error) {
	records, err := c.knowledge.ActiveRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active records: %w", err)
	}

	marked := 0
	for _, rec := range records {
		select {
		case <-ctx.Done():
			return marked, ctx.Err()
		default:
		}

		gone, err := c.probe(ctx, rec.SourceURL)
		if err != nil {
			c.logger.Warn("liveness probe failed", "url", rec.SourceURL, "error", err)
			continue
		}
		if !gone {
			continue
		}

		if err := c.knowledge.MarkUnavailable(ctx, rec.ID); err != nil {
			c.logger.Error("mark record unavailable", "record_id", rec.ID, "error", err)
			continue
		}

		marked++
		c.logger.Info("retired unavailable video", "title", rec.Title, "url", rec.SourceURL)
	}

	return marked, nil
}

func (c *Checker) probe(ctx context.Context, watchURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "VideoCurator/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("request watch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("watch page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return false, fmt.Errorf("parse watch page: %w", err)
	}

	return pageSaysUnavailable(doc), nil
}

// pageSaysUnavailable inspects the rendered watch page. Live videos carry
// an og:video:url meta tag; pages without one are checked for the
// provider's unavailability wording before the record is condemned.
func pageSaysUnavailable(doc *goquery.Document) bool {
	if doc.Find(`meta[property="og:video:url"]`).Length() > 0 {
		return false
	}

	text := strings.ToLower(doc.Text())
	for _, phrase := range unavailablePhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}

	return false
}
