// Package snapstore persists scraped job records as date-partitioned,
// append-only parquet snapshots and consolidates them back into one
// deduplicated table.
//
// Layout:
//
//	<root>/snapshot_date=<YYYY-MM-DD>/part-<NNN>.parquet (or .json fallback)
//
// Parts are immutable once written and numbered monotonically within a
// partition. Part numbering assumes a single writer process; two
// processes racing on the same partition will collide, in which case
// the exclusive create fails loudly instead of overwriting.
package snapstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"hirewatch-backend/lib/jobtable"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("snapstore")

var ErrEmptyBatch = errors.New("snapstore: batch is empty, nothing to write")

const partitionPrefix = "snapshot_date="

var partFileRegex = regexp.MustCompile(`^part-(\d+)\.(parquet|json)$`)

// columns an empty raw store reports so downstream code never branches
// on presence of data.
var rawPlaceholderColumns = []string{
	"job_id",
	"snapshot_date",
	"title",
	"department",
	"employment_type",
	"salary_min",
	"salary_max",
	"seniority",
}

// the cleaned store additionally carries the flattened columns.
var cleanPlaceholderColumns = []string{
	"job_id",
	"snapshot_date",
	"title",
	"department",
	"employment_type",
	"salary_min",
	"salary_max",
	"seniority",
	"location",
	"departments",
	"offices",
}

type Store struct {
	root        string
	placeholder []string
	// strictKey stores refuse to consolidate data without the
	// primary-key columns; the cleaned store tolerates it because
	// cleaning rules evolve and its schema is unpredictable.
	strictKey bool
	log       *slog.Logger
}

// NewRawStore opens a store over raw scraper output rooted at root.
func NewRawStore(root string) *Store {
	return &Store{
		root:        root,
		placeholder: rawPlaceholderColumns,
		strictKey:   true,
		log:         slog.Default(),
	}
}

// NewCleanStore opens a store over flattened, analysis-ready records.
func NewCleanStore(root string) *Store {
	return &Store{
		root:        root,
		placeholder: cleanPlaceholderColumns,
		strictKey:   false,
		log:         slog.Default(),
	}
}

// SetLogger replaces the diagnostic logger; tests use this to assert
// on skip warnings.
func (s *Store) SetLogger(log *slog.Logger) {
	s.log = log
}

func (s *Store) Root() string {
	return s.root
}

// WriteSnapshot validates batch and writes it out as a new part,
// returning the path actually written. The extension reflects the
// format that succeeded: parquet normally, json when the columnar
// write fails. Within the batch the identifier column is canonicalized,
// noisy columns are dropped, every row gets a snapshot_date, and
// duplicate (job_id, snapshot_date) rows collapse to the first
// occurrence before anything reaches disk.
func (s *Store) WriteSnapshot(ctx context.Context, batch []jobtable.Record) (string, error) {
	ctx, span := tracer.Start(ctx, "WriteSnapshot")
	defer span.End()

	if len(batch) == 0 {
		span.SetStatus(codes.Error, ErrEmptyBatch.Error())
		return "", ErrEmptyBatch
	}

	// partition key comes from the first record; the scraper always
	// stamps it, the fallback is for callers feeding hand-built
	// batches.
	snapshotDate := jobtable.FormatValue(batch[0][jobtable.DateColumn])
	if snapshotDate == "" {
		snapshotDate = time.Now().UTC().Format(time.DateOnly)
	}

	partitionDir := filepath.Join(s.root, partitionPrefix+snapshotDate)
	if err := os.MkdirAll(partitionDir, 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("creating partition: %w", err)
	}

	nextIdx, err := nextPartIndex(partitionDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	rows := jobtable.Harmonize(batch)
	for _, rec := range rows {
		if _, ok := rec[jobtable.DateColumn]; !ok {
			rec[jobtable.DateColumn] = snapshotDate
		}
	}
	rows = jobtable.DedupeByKey(rows)
	tbl := jobtable.New(rows)

	partPath := filepath.Join(partitionDir, fmt.Sprintf("part-%03d.parquet", nextIdx))
	if err := writeParquet(partPath, tbl); err != nil {
		s.log.WarnContext(ctx, "parquet write failed, falling back to json",
			"path", partPath, "err", err)
		span.RecordError(err)

		jsonPath := strings.TrimSuffix(partPath, ".parquet") + ".json"
		if err := writeJSONPart(jsonPath, tbl); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return "", fmt.Errorf("writing fallback part: %w", err)
		}
		partPath = jsonPath
	}

	span.SetAttributes(
		attribute.String("part", partPath),
		attribute.Int("rows", len(tbl.Rows)),
	)
	s.log.InfoContext(ctx, "snapshot part written",
		"path", partPath, "rows", len(tbl.Rows))
	return partPath, nil
}

// Load discovers every part across every partition and consolidates
// them into one table: column union, rows concatenated, deduplicated on
// (job_id, snapshot_date) keeping the first occurrence in enumeration
// order. A missing root yields an empty table with placeholder columns;
// an unreadable part is skipped with a warning.
func (s *Store) Load(ctx context.Context) (jobtable.Table, error) {
	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()

	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return jobtable.Table{Columns: slices.Clone(s.placeholder)}, nil
	}

	parts, err := s.discoverParts()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return jobtable.Table{}, err
	}
	if len(parts) == 0 {
		return jobtable.Table{}, nil
	}

	var rows []jobtable.Record
	for _, part := range parts {
		recs, err := readPart(part)
		if err != nil {
			span.RecordError(err)
			s.log.WarnContext(ctx, "skipping unreadable part",
				"path", part, "err", err)
			continue
		}
		rows = append(rows, jobtable.Harmonize(recs)...)
	}
	if len(rows) == 0 {
		return jobtable.Table{}, nil
	}

	tbl := jobtable.New(rows)
	hasKeys := tbl.HasColumn(jobtable.KeyColumn) && tbl.HasColumn(jobtable.DateColumn)
	if !hasKeys {
		if s.strictKey {
			err := fmt.Errorf("snapstore: consolidated table at %s is missing %s/%s columns",
				s.root, jobtable.KeyColumn, jobtable.DateColumn)
			span.SetStatus(codes.Error, err.Error())
			return jobtable.Table{}, err
		}
		// cleaned data may legitimately lack key columns; keep
		// everything rather than failing.
		span.SetAttributes(attribute.Int("rows", len(tbl.Rows)))
		return tbl, nil
	}

	tbl.Rows = jobtable.DedupeByKey(tbl.Rows)
	span.SetAttributes(attribute.Int("rows", len(tbl.Rows)))
	return tbl, nil
}

// discoverParts walks <root>/snapshot_date=*/part-*.{parquet,json} in
// sorted directory order. The order is not chronological; "first
// occurrence wins" during dedupe is a best-effort tie-break, not a
// guarantee about which physical write is retained.
func (s *Store) discoverParts() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading store root: %w", err)
	}

	var parts []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), partitionPrefix) {
			continue
		}
		partitionDir := filepath.Join(s.root, entry.Name())
		files, err := os.ReadDir(partitionDir)
		if err != nil {
			return nil, fmt.Errorf("reading partition %s: %w", entry.Name(), err)
		}
		for _, file := range files {
			if file.IsDir() || !partFileRegex.MatchString(file.Name()) {
				continue
			}
			parts = append(parts, filepath.Join(partitionDir, file.Name()))
		}
	}
	return parts, nil
}

func nextPartIndex(partitionDir string) (int, error) {
	files, err := os.ReadDir(partitionDir)
	if err != nil {
		return 0, fmt.Errorf("reading partition: %w", err)
	}

	next := 0
	for _, file := range files {
		groups := partFileRegex.FindStringSubmatch(file.Name())
		if groups == nil {
			continue
		}
		idx, err := strconv.Atoi(groups[1])
		if err != nil {
			continue
		}
		if idx+1 > next {
			next = idx + 1
		}
	}
	return next, nil
}

func readPart(path string) ([]jobtable.Record, error) {
	if strings.HasSuffix(path, ".json") {
		return readJSONPart(path)
	}
	return readParquet(path)
}
