package greenhouse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hirewatch-backend/lib/jobtable"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"
)

// boardAPI is the slice of Client the orchestrator depends on; tests
// swap in fakes.
type boardAPI interface {
	FetchList(ctx context.Context, limit *semaphore.Weighted) ([]Stub, error)
	FetchDetail(ctx context.Context, limit *semaphore.Weighted, id string) (map[string]any, error)
}

// Scraper runs the two-phase scrape: list the board once, then fetch
// every posting's detail concurrently under one shared limiter.
type Scraper struct {
	api   boardAPI
	limit *semaphore.Weighted
	log   *slog.Logger
}

func NewScraper(cfg Config) *Scraper {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Scraper{
		api:   NewClient(cfg),
		limit: semaphore.NewWeighted(concurrency),
		log:   slog.Default(),
	}
}

func (s *Scraper) SetLogger(log *slog.Logger) {
	s.log = log
}

// Scrape returns one canonicalized record per posting that could be
// fully detailed. Individual fetch failures are dropped with a warning;
// an unreachable or empty listing yields an empty result, not an error.
// Every returned record carries the same snapshot_date, stamped once
// per run even if the run crosses a day boundary.
func (s *Scraper) Scrape(ctx context.Context) ([]jobtable.Record, error) {
	ctx, span := tracer.Start(ctx, "Scrape")
	defer span.End()

	snapshotDate := time.Now().UTC().Format(time.DateOnly)

	stubs, err := s.api.FetchList(ctx, s.limit)
	if err != nil {
		span.RecordError(err)
		s.log.WarnContext(ctx, "job listing unavailable", "err", err)
		return nil, nil
	}
	if len(stubs) == 0 {
		s.log.InfoContext(ctx, "job listing empty")
		return nil, nil
	}
	span.SetAttributes(attribute.Int("jobs.listed", len(stubs)))

	details := make([]map[string]any, len(stubs))
	var wg sync.WaitGroup
	for i, stub := range stubs {
		wg.Add(1)
		go func(i int, stub Stub) {
			defer wg.Done()
			detail, err := s.api.FetchDetail(ctx, s.limit, stub.ID)
			if err != nil {
				s.log.WarnContext(ctx, "dropping job, detail fetch failed",
					"id", stub.ID, "err", err)
				return
			}
			details[i] = detail
		}(i, stub)
	}
	wg.Wait()

	records := make([]jobtable.Record, 0, len(details))
	for _, detail := range details {
		if detail == nil {
			continue
		}
		rec := jobtable.Record(detail)
		jobtable.Canonicalize(rec)
		rec[jobtable.DateColumn] = snapshotDate
		records = append(records, rec)
	}

	span.SetAttributes(attribute.Int("jobs.scraped", len(records)))
	s.log.InfoContext(ctx, "scrape complete",
		"listed", len(stubs),
		"scraped", len(records),
		"snapshot_date", snapshotDate)
	return records, nil
}
