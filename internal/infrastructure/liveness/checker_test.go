package liveness

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"VideoCurator/internal/domain"
	"VideoCurator/internal/logging"
)

type fakeKnowledge struct {
	records     []domain.KnowledgeRecord
	unavailable []uuid.UUID
}

func (f *fakeKnowledge) ExistsBySourceURL(context.Context, string) (bool, error) { return false, nil }
func (f *fakeKnowledge) Insert(context.Context, domain.KnowledgeRecord) (bool, error) {
	return false, nil
}
func (f *fakeKnowledge) CountByTechnique(context.Context, string) (int, error) { return 0, nil }
func (f *fakeKnowledge) CountByTechniqueAndInstructor(context.Context, string, string) (int, error) {
	return 0, nil
}
func (f *fakeKnowledge) ActiveRecords(context.Context) ([]domain.KnowledgeRecord, error) {
	return f.records, nil
}
func (f *fakeKnowledge) MarkUnavailable(_ context.Context, id uuid.UUID) error {
	f.unavailable = append(f.unavailable, id)
	return nil
}

const livePage = `<html><head>
<meta property="og:video:url" content="https://www.youtube.com/embed/abc123">
<title>Armbar Details - YouTube</title>
</head><body></body></html>`

const deadPage = `<html><head><title> - YouTube</title></head>
<body><div id="player-error">Video unavailable. This video has been removed by the uploader.</div></body></html>`

func TestCheckAllRetiresDeadVideos(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("v") {
		case "live1":
			_, _ = w.Write([]byte(livePage))
		case "dead1":
			_, _ = w.Write([]byte(deadPage))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	deadID := uuid.New()
	goneID := uuid.New()
	repo := &fakeKnowledge{records: []domain.KnowledgeRecord{
		{ID: uuid.New(), SourceURL: server.URL + "/watch?v=live1", Title: "still up"},
		{ID: deadID, SourceURL: server.URL + "/watch?v=dead1", Title: "removed"},
		{ID: goneID, SourceURL: server.URL + "/watch?v=gone1", Title: "404"},
	}}

	checker := NewChecker(repo, server.Client(), logging.NewNop())

	marked, err := checker.CheckAll(context.Background())
	if err != nil {
		t.Fatalf("CheckAll error: %v", err)
	}

	if marked != 2 {
		t.Fatalf("expected 2 retired records, got %d", marked)
	}
	if len(repo.unavailable) != 2 {
		t.Fatalf("expected 2 marked ids, got %d", len(repo.unavailable))
	}
	if repo.unavailable[0] != deadID || repo.unavailable[1] != goneID {
		t.Fatalf("unexpected marked ids: %v", repo.unavailable)
	}
}

func TestCheckAllLeavesRecordsOnTransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := &fakeKnowledge{records: []domain.KnowledgeRecord{
		{ID: uuid.New(), SourceURL: server.URL + "/watch?v=abc", Title: "flaky upstream"},
	}}

	checker := NewChecker(repo, server.Client(), logging.NewNop())

	marked, err := checker.CheckAll(context.Background())
	if err != nil {
		t.Fatalf("CheckAll error: %v", err)
	}

	if marked != 0 {
		t.Fatalf("expected no retired records, got %d", marked)
	}
	if len(repo.unavailable) != 0 {
		t.Fatalf("expected no marks on server errors, got %v", repo.unavailable)
	}
}

func TestCheckAllStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(livePage))
	}))
	defer server.Close()

	repo := &fakeKnowledge{records: []domain.KnowledgeRecord{
		{ID: uuid.New(), SourceURL: server.URL + "/watch?v=a"},
		{ID: uuid.New(), SourceURL: server.URL + "/watch?v=b"},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checker := NewChecker(repo, server.Client(), logging.NewNop())

	start := time.Now()
	if _, err := checker.CheckAll(ctx); err == nil {
		t.Fatalf("expected context error")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("cancelled sweep took too long")
	}
}
