package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"VideoCurator/internal/catalog"
	"VideoCurator/internal/config"
	"VideoCurator/internal/logging"
	"VideoCurator/internal/quota"
)

func TestParseDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want int
	}{
		{"PT15M33S", 933},
		{"PT1H2M3S", 3723},
		{"PT45S", 45},
		{"PT2H", 7200},
		{"P1DT2H", 93600},
		{"P0D", 0},
	}

	for _, tc := range cases {
		got, err := parseDuration(tc.raw)
		if err != nil {
			t.Fatalf("parseDuration(%q) returned error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parseDuration(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}

	if _, err := parseDuration("1h30m"); err == nil {
		t.Fatalf("expected error for non-ISO duration")
	}
}

func newTestClient(serverURL string, budget int) *Client {
	cfg := config.CatalogConfig{
		BaseURL:         serverURL,
		APIKey:          "test-key",
		DailyQuotaUnits: budget,
		RequestsPerSec:  0,
		Burst:           1,
	}
	guard := quota.NewGuard(budget, nil, nil)
	return NewClient(cfg, guard, logging.NewNop())
}

func TestSearchReturnsCandidates(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("q") != "bjj instructional" {
			t.Errorf("unexpected query: %s", r.URL.Query().Get("q"))
		}
		_, _ = w.Write([]byte(`{
			"items": [
				{
					"id": {"videoId": "abc123"},
					"snippet": {
						"title": "Armbar Details",
						"channelTitle": "Grapple Lab",
						"publishedAt": "2026-03-01T12:00:00Z"
					}
				},
				{
					"id": {"videoId": ""},
					"snippet": {"title": "channel result"}
				}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 10000)

	refs, err := client.Search(context.Background(), catalog.Request{Query: "bjj instructional", MaxResults: 5})
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}

	if len(refs) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(refs))
	}
	if refs[0].VideoID != "abc123" {
		t.Fatalf("unexpected video id: %s", refs[0].VideoID)
	}
	if refs[0].ChannelTitle != "Grapple Lab" {
		t.Fatalf("unexpected channel: %s", refs[0].ChannelTitle)
	}
	if refs[0].PublishedAt.IsZero() {
		t.Fatalf("expected parsed publishedAt")
	}
}

func TestDetailsParsesStatistics(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"items": [
				{
					"id": "abc123",
					"snippet": {
						"title": "Armbar Details",
						"description": "Finishing mechanics from closed guard.",
						"channelTitle": "Grapple Lab",
						"publishedAt": "2026-03-01T12:00:00Z"
					},
					"contentDetails": {"duration": "PT15M33S"},
					"statistics": {"viewCount": "12345", "likeCount": "678"}
				}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 10000)

	details, err := client.Details(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Details error: %v", err)
	}

	if details.DurationSeconds != 933 {
		t.Fatalf("expected 933 seconds, got %d", details.DurationSeconds)
	}
	if details.ViewCount != 12345 {
		t.Fatalf("expected 12345 views, got %d", details.ViewCount)
	}
	if details.LikeCount != 678 {
		t.Fatalf("expected 678 likes, got %d", details.LikeCount)
	}
	if details.SourceURL() != "https://www.youtube.com/watch?v=abc123" {
		t.Fatalf("unexpected source url: %s", details.SourceURL())
	}
}

func TestQuotaDenialMarksGuardExhausted(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{
			"error": {
				"code": 403,
				"message": "The request cannot be completed because you have exceeded your quota.",
				"errors": [{"reason": "quotaExceeded"}]
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 10000)

	_, err := client.Search(context.Background(), catalog.Request{Query: "half guard"})
	if !errors.Is(err, quota.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 request, got %d", hits.Load())
	}

	// The guard now refuses before any network traffic.
	_, err = client.Search(context.Background(), catalog.Request{Query: "half guard"})
	if !errors.Is(err, quota.ErrExhausted) {
		t.Fatalf("expected fail-fast ErrExhausted, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected no further requests, got %d", hits.Load())
	}
}

func TestBudgetPredictionBlocksRequest(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer server.Close()

	// A search costs 100 units, so a 50 unit budget can never afford one.
	client := newTestClient(server.URL, 50)

	_, err := client.Search(context.Background(), catalog.Request{Query: "berimbolo"})
	if !errors.Is(err, quota.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected request to be blocked before the network, got %d hits", hits.Load())
	}
}
