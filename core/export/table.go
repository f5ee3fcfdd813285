package export

import (
	"strings"

	"github.com/pkg/errors"
)

const NoDataText = "No data available"

// ColumnStrategy decides which columns a tabular payload gets when its records disagree on keys.
type ColumnStrategy int

const (
	// ColumnsFromFirstRecord uses the keys of the first record only; keys that only appear in later records are dropped.
	ColumnsFromFirstRecord ColumnStrategy = iota
	// ColumnsUnionOfKeys uses every key of every record, in first-seen order.
	ColumnsUnionOfKeys
)

func (s ColumnStrategy) String() string {
	if s == ColumnsUnionOfKeys {
		return "union"
	}
	return "first"
}

func ParseColumnStrategy(s string) (ColumnStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return ColumnsFromFirstRecord, nil
	case "union":
		return ColumnsUnionOfKeys, nil
	}
	return ColumnsFromFirstRecord, errors.Errorf("unknown column strategy %q", s)
}

type TableOptions struct {
	Columns  ColumnStrategy
	MaxDepth int
}

// Table is the row set shared by all renderers.
type Table struct {
	Structure Structure
	Headers   []string
	Rows      [][]any
	// Empty is set when the payload had nothing to render and Rows holds the placeholder.
	Empty bool
}

// KeyValue reports whether the table is a "Field" / "Value" table.
func (t *Table) KeyValue() bool {
	return t.Structure == StructureKeyValue && !t.Empty
}

func emptyTable(s Structure) *Table {
	return &Table{
		Structure: s,
		Headers:   []string{"Value"},
		Rows:      [][]any{{NoDataText}},
		Empty:     true,
	}
}

// BuildTable derives the headers and rows of `data`.
// Cells are nil-free: missing and null values become "", nested values become JSON strings.
func BuildTable(data any, opts TableOptions) (*Table, error) {
	structure := DetectStructure(data)
	if structure == StructureTable {
		return buildRecordTable(data.([]any), opts)
	}

	entries, err := Flatten(data, WithMaxDepth(opts.MaxDepth))
	if err != nil {
		return nil, errors.Wrap(err, "flattening data")
	}
	if len(entries) == 0 {
		return emptyTable(structure), nil
	}

	t := &Table{
		Structure: structure,
		Headers:   []string{"Field", "Value"},
		Rows:      make([][]any, 0, len(entries)),
	}
	for _, e := range entries {
		value := e.Value
		if value == nil {
			value = ""
		}
		t.Rows = append(t.Rows, []any{FormatFieldName(e.Key), value})
	}
	return t, nil
}

func buildRecordTable(records []any, opts TableOptions) (*Table, error) {
	keys := columnKeys(records, opts.Columns)
	if len(keys) == 0 {
		return emptyTable(StructureTable), nil
	}

	t := &Table{
		Structure: StructureTable,
		Headers:   make([]string, len(keys)),
		Rows:      make([][]any, 0, len(records)),
	}
	for i, k := range keys {
		t.Headers[i] = FormatFieldName(k)
	}

	w := newWalker(opts.MaxDepth)
	for _, record := range records {
		row := make([]any, len(keys))
		for i, k := range keys {
			v, _ := objectGet(record, k)
			cell, err := w.cell(v)
			if err != nil {
				return nil, errors.Wrapf(err, "building row %d", len(t.Rows))
			}
			row[i] = cell
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func columnKeys(records []any, strategy ColumnStrategy) []string {
	first, _ := objectPairs(records[0])
	keys := make([]string, 0, len(first))
	for _, p := range first {
		keys = append(keys, p.key)
	}
	if strategy != ColumnsUnionOfKeys {
		return keys
	}

	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		seen[k] = true
	}
	for _, record := range records[1:] {
		pairs, _ := objectPairs(record)
		for _, p := range pairs {
			if !seen[p.key] {
				seen[p.key] = true
				keys = append(keys, p.key)
			}
		}
	}
	return keys
}

func (w *walker) cell(v any) (any, error) {
	switch {
	case v == nil:
		return "", nil
	case isObject(v) || isArray(v):
		return w.compact(v, 1)
	}
	return v, nil
}

// cellText is the textual form of a cell, as shown in the PDF and used for column widths.
func cellText(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(v)
	}
	raw, err := jsonAPI.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.Trim(string(raw), `"`)
}
