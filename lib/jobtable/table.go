package jobtable

import (
	"slices"
)

// Table is the consolidated, row-oriented view of one or more record
// batches. Columns is the union of every row's columns; a row simply
// lacks an entry for columns it has no value for (treated as null).
type Table struct {
	Columns []string
	Rows    []Record
}

// New builds a table over the given rows. Column order is sorted for
// determinism, with the primary-key columns hoisted to the front when
// present.
func New(rows []Record) Table {
	seen := map[string]bool{}
	var columns []string
	for _, rec := range rows {
		for col := range rec {
			if !seen[col] {
				seen[col] = true
				columns = append(columns, col)
			}
		}
	}
	slices.Sort(columns)

	front := 0
	for _, key := range []string{KeyColumn, DateColumn} {
		if idx := slices.Index(columns, key); idx >= 0 {
			columns = slices.Delete(columns, idx, idx+1)
			columns = slices.Insert(columns, front, key)
			front++
		}
	}

	return Table{Columns: columns, Rows: rows}
}

func (t Table) IsEmpty() bool {
	return len(t.Rows) == 0
}

func (t Table) HasColumn(name string) bool {
	return slices.Contains(t.Columns, name)
}

// DedupeByKey drops rows whose (job_id, snapshot_date) pair was already
// seen, keeping the first occurrence. Missing key fields compare as the
// empty string.
func DedupeByKey(rows []Record) []Record {
	seen := make(map[string]bool, len(rows))
	out := make([]Record, 0, len(rows))
	for _, rec := range rows {
		key := FormatValue(rec[KeyColumn]) + "\x1f" + FormatValue(rec[DateColumn])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
	}
	return out
}
