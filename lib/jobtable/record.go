// Package jobtable holds the tabular model shared by the scraper and the
// snapshot store: open records whose columns vary across source-schema
// versions, and the harmonization rules that keep them queryable anyway.
package jobtable

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one job posting as an open column->value mapping. Values are
// scalars (string, float64, bool, nil) once a record has been through
// Scalarize; straight off the JSON decoder they may still be nested
// []any / map[string]any structures.
type Record map[string]any

// the stable public identifier column every record ends up with.
const KeyColumn = "job_id"

// the partition key column, an ISO date string.
const DateColumn = "snapshot_date"

// legacy identifier columns, in the order they are preferred as a
// job_id source when job_id itself is missing.
var legacyIDColumns = []string{"requisition_id", "id"}

// columns dropped everywhere: upstream internals, opaque blobs, and the
// redundant board name.
var noisyColumns = []string{
	"id",
	"internal_job_id",
	"metadata",
	"data_compliance",
	"company_name",
}

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Canonicalize rewrites a single record in place so it carries a job_id
// and none of the noisy columns. Used by the orchestrator before records
// ever reach storage.
func Canonicalize(rec Record) {
	if _, ok := rec[KeyColumn]; !ok {
		if v, ok := rec["requisition_id"]; ok {
			rec[KeyColumn] = v
			delete(rec, "requisition_id")
		} else if v, ok := rec["id"]; ok {
			rec[KeyColumn] = v
		}
	}
	for _, col := range noisyColumns {
		delete(rec, col)
	}
}

// Harmonize applies the same identifier renaming and column pruning as
// Canonicalize, but column-wise across a whole batch: a part either has
// the new identifiers or the old ones, never a row-by-row mix. The input
// records are cloned, not mutated.
func Harmonize(rows []Record) []Record {
	hasKey := false
	for _, rec := range rows {
		if _, ok := rec[KeyColumn]; ok {
			hasKey = true
			break
		}
	}

	renameFrom := ""
	if !hasKey {
	search:
		for _, legacy := range legacyIDColumns {
			for _, rec := range rows {
				if _, ok := rec[legacy]; ok {
					renameFrom = legacy
					break search
				}
			}
		}
	}

	out := make([]Record, len(rows))
	for i, rec := range rows {
		clone := rec.Clone()
		if renameFrom != "" {
			if v, ok := clone[renameFrom]; ok {
				clone[KeyColumn] = v
				delete(clone, renameFrom)
			}
		}
		for _, col := range noisyColumns {
			delete(clone, col)
		}
		out[i] = clone
	}
	return out
}

// Scalarize coerces a decoded JSON value into the closed scalar set:
// string, float64, bool or nil. Anything nested is serialized to a
// compact JSON string so it survives columnar storage.
func Scalarize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case bool:
		return x
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

// FormatValue renders a scalar the way it should appear as an
// identifier: integers without a trailing ".0", everything else as-is.
func FormatValue(v any) string {
	switch x := Scalarize(v).(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
