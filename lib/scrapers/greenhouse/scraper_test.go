package greenhouse

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"hirewatch-backend/lib/jobtable"
	"hirewatch-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"
)

type fakeBoard struct {
	stubs   []Stub
	listErr error
	failIDs map[string]bool
}

func (f *fakeBoard) FetchList(ctx context.Context, _ *semaphore.Weighted) ([]Stub, error) {
	return f.stubs, f.listErr
}

func (f *fakeBoard) FetchDetail(ctx context.Context, _ *semaphore.Weighted, id string) (map[string]any, error) {
	if f.failIDs[id] {
		return nil, fmt.Errorf("detail fetch failed for %s", id)
	}
	return map[string]any{
		"id":    id,
		"title": fmt.Sprintf("Job %s", id),
	}, nil
}

func newTestScraper(api boardAPI) *Scraper {
	return &Scraper{
		api:   api,
		limit: semaphore.NewWeighted(3),
		log:   slog.Default(),
	}
}

func TestScrapeReturnsDetailedJobs(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:greenhouse")
	defer cleanup()

	s := newTestScraper(&fakeBoard{stubs: []Stub{{ID: "1"}, {ID: "2"}}})

	records, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	ids := map[string]bool{}
	dates := map[string]bool{}
	for _, rec := range records {
		ids[jobtable.FormatValue(rec["job_id"])] = true
		dates[jobtable.FormatValue(rec["snapshot_date"])] = true
		require.NotContains(t, rec, "id")
	}
	require.Equal(t, map[string]bool{"1": true, "2": true}, ids)
	// one snapshot_date for the whole run
	require.Len(t, dates, 1)
}

func TestScrapeSkipsFailedDetails(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:greenhouse")
	defer cleanup()

	s := newTestScraper(&fakeBoard{
		stubs:   []Stub{{ID: "1"}, {ID: "2"}, {ID: "3"}},
		failIDs: map[string]bool{"3": true},
	})

	records, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	ids := map[string]bool{}
	for _, rec := range records {
		ids[jobtable.FormatValue(rec["job_id"])] = true
	}
	require.Equal(t, map[string]bool{"1": true, "2": true}, ids)
}

func TestScrapeEmptyListing(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:greenhouse")
	defer cleanup()

	s := newTestScraper(&fakeBoard{})
	records, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestScrapeListingFailureIsNotFatal(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:greenhouse")
	defer cleanup()

	s := newTestScraper(&fakeBoard{listErr: fmt.Errorf("listing unreachable")})
	records, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestRandomUserAgent(t *testing.T) {
	ua := randomUserAgent()
	require.Contains(t, userAgents, ua)
}
