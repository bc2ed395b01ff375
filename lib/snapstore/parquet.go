package snapstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"hirewatch-backend/lib/jobtable"

	"github.com/parquet-go/parquet-go"
)

type columnKind int

const (
	kindString columnKind = iota
	kindNumber
	kindBool
)

// inferKinds picks one physical type per column from the values the
// part actually carries. A column with mixed kinds (or only nulls)
// degrades to UTF8 so nothing is lost.
func inferKinds(tbl jobtable.Table) map[string]columnKind {
	kinds := make(map[string]columnKind, len(tbl.Columns))
	for _, col := range tbl.Columns {
		kind := columnKind(-1)
		mixed := false
		for _, row := range tbl.Rows {
			v := jobtable.Scalarize(row[col])
			if v == nil {
				continue
			}
			var k columnKind
			switch v.(type) {
			case bool:
				k = kindBool
			case float64:
				k = kindNumber
			default:
				k = kindString
			}
			if kind == -1 {
				kind = k
			} else if kind != k {
				mixed = true
				break
			}
		}
		if mixed || kind == -1 {
			kind = kindString
		}
		kinds[col] = kind
	}
	return kinds
}

func nodeFor(kind columnKind) parquet.Node {
	switch kind {
	case kindBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	case kindNumber:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	default:
		return parquet.Optional(parquet.String())
	}
}

// writeParquet creates path exclusively and writes tbl as a single row
// group. Every column is optional; the schema is built per part from
// the inferred kinds, so different parts of one partition may carry
// different schemas.
func writeParquet(path string, tbl jobtable.Table) (err error) {
	kinds := inferKinds(tbl)

	group := parquet.Group{}
	for _, col := range tbl.Columns {
		group[col] = nodeFor(kinds[col])
	}
	schema := parquet.NewSchema("snapshot", group)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating part: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(path)
		}
	}()

	w := parquet.NewWriter(f, schema)
	rows := make([]parquet.Row, 0, len(tbl.Rows))
	for _, rec := range tbl.Rows {
		rows = append(rows, buildRow(schema, kinds, rec))
	}
	if _, err = w.WriteRows(rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("closing writer: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("closing part: %w", err)
	}
	return nil
}

// buildRow lays out rec's values in the schema's field order. Fields
// come back from the schema alphabetically sorted, which is also how
// readParquet will report columns.
func buildRow(schema *parquet.Schema, kinds map[string]columnKind, rec jobtable.Record) parquet.Row {
	fields := schema.Fields()
	row := make(parquet.Row, 0, len(fields))
	for i, field := range fields {
		name := field.Name()
		v := jobtable.Scalarize(rec[name])
		if v == nil {
			row = append(row, parquet.Value{}.Level(0, 0, i))
			continue
		}
		switch kinds[name] {
		case kindBool:
			row = append(row, parquet.ValueOf(v.(bool)).Level(0, 1, i))
		case kindNumber:
			row = append(row, parquet.ValueOf(v.(float64)).Level(0, 1, i))
		default:
			row = append(row, parquet.ValueOf(jobtable.FormatValue(v)).Level(0, 1, i))
		}
	}
	return row
}

func readParquet(path string) ([]jobtable.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening part: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat part: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("opening parquet: %w", err)
	}

	fields := pf.Schema().Fields()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name()
	}

	var records []jobtable.Record
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		buf := make([]parquet.Row, 64)
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				rec := jobtable.Record{}
				for _, val := range row {
					col := columns[val.Column()]
					if val.IsNull() {
						rec[col] = nil
						continue
					}
					rec[col] = decodeValue(val)
				}
				records = append(records, rec)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("reading rows: %w", err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("closing row reader: %w", err)
		}
	}
	return records, nil
}

func decodeValue(val parquet.Value) any {
	switch val.Kind() {
	case parquet.Boolean:
		return val.Boolean()
	case parquet.Int32:
		return float64(val.Int32())
	case parquet.Int64:
		return float64(val.Int64())
	case parquet.Float:
		return float64(val.Float())
	case parquet.Double:
		return val.Double()
	default:
		return val.String()
	}
}

// writeJSONPart is the fallback format: a plain array of row objects,
// indented for eyeballing.
func writeJSONPart(path string, tbl jobtable.Table) error {
	out, err := json.MarshalIndent(tbl.Rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding part: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating part: %w", err)
	}
	if _, err := f.Write(out); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing part: %w", err)
	}
	return f.Close()
}

func readJSONPart(path string) ([]jobtable.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading part: %w", err)
	}
	var records []jobtable.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding part: %w", err)
	}
	return records, nil
}
