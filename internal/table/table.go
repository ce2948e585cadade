// Package table holds the in-memory tabular value passed between the
// warehouse, the file store and the pipeline stages.
package table

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind is the physical type of a column
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindInt
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column describes one named, typed column
type Column struct {
	Name string
	Kind Kind
}

func Str(name string) Column   { return Column{Name: name, Kind: KindString} }
func Float(name string) Column { return Column{Name: name, Kind: KindFloat} }
func Int(name string) Column   { return Column{Name: name, Kind: KindInt} }

// Table is an ordered set of typed columns and rows of cells.
// Cells are string, float64, int64 or nil (missing).
// ⭐ SSOT: 스테이지 간 데이터는 모두 Table로 전달
type Table struct {
	cols  []Column
	index map[string]int
	rows  [][]any
}

// New creates an empty table. Duplicate column names panic.
func New(cols ...Column) *Table {
	t := &Table{
		cols:  append([]Column(nil), cols...),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if _, dup := t.index[c.Name]; dup {
			panic(fmt.Sprintf("table: duplicate column %q", c.Name))
		}
		t.index[c.Name] = i
	}
	return t
}

// Columns returns a copy of the schema
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.cols...)
}

// Names returns the column names in order
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

func (t *Table) Len() int   { return len(t.rows) }
func (t *Table) Width() int { return len(t.cols) }

// Has reports whether the column exists
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Col returns the column position
func (t *Table) Col(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Kind returns the column kind (KindString for unknown columns)
func (t *Table) Kind(name string) Kind {
	if i, ok := t.index[name]; ok {
		return t.cols[i].Kind
	}
	return KindString
}

// Append adds a row. Values must match the schema width and kinds.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.cols) {
		return fmt.Errorf("table: row has %d values, schema has %d columns", len(values), len(t.cols))
	}

	row := make([]any, len(values))
	for i, v := range values {
		cell, err := coerce(t.cols[i], v)
		if err != nil {
			return err
		}
		row[i] = cell
	}
	t.rows = append(t.rows, row)
	return nil
}

func coerce(col Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch col.Kind {
	case KindString:
		switch x := v.(type) {
		case string:
			return x, nil
		case fmt.Stringer:
			return x.String(), nil
		}
	case KindFloat:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		}
	case KindInt:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		}
	}

	// named types such as contracts.Abrnr
	rv := reflect.ValueOf(v)
	switch {
	case col.Kind == KindString && rv.Kind() == reflect.String:
		return rv.String(), nil
	case col.Kind == KindFloat && (rv.Kind() == reflect.Float64 || rv.Kind() == reflect.Float32):
		return rv.Float(), nil
	case col.Kind == KindFloat && rv.CanInt():
		return float64(rv.Int()), nil
	case col.Kind == KindInt && rv.CanInt():
		return rv.Int(), nil
	}
	return nil, fmt.Errorf("table: column %q (%s) cannot hold %T", col.Name, col.Kind, v)
}

// Row returns a copy of row i
func (t *Table) Row(i int) []any {
	return append([]any(nil), t.rows[i]...)
}

// Value returns the raw cell, nil when missing or the column is unknown
func (t *Table) Value(i int, name string) any {
	c, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.rows[i][c]
}

// Str returns a cell as text. Missing cells yield "".
func (t *Table) Str(i int, name string) string {
	switch v := t.Value(i, name).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return FormatFloat(v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprint(v)
	}
}

// Float returns a numeric cell. Text cells are parsed with decimal-comma support.
func (t *Table) Float(i int, name string) (float64, bool) {
	switch v := t.Value(i, name).(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case string:
		return ParseFloat(v)
	default:
		return 0, false
	}
}

// Int returns an integer cell. Floats are truncated, text is parsed.
func (t *Table) Int(i int, name string) (int64, bool) {
	switch v := t.Value(i, name).(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case string:
		f, ok := ParseFloat(v)
		return int64(f), ok
	default:
		return 0, false
	}
}

// Require fails when any of the named columns is absent
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		if !t.Has(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Missing: missing, Have: t.Names()}
	}
	return nil
}

// MissingColumnsError lists required columns a table does not carry
type MissingColumnsError struct {
	Missing []string
	Have    []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing columns [%s]", strings.Join(e.Missing, ", "))
}

// Filter returns a new table with the rows for which keep is true
func (t *Table) Filter(keep func(i int) bool) *Table {
	out := New(t.cols...)
	for i, r := range t.rows {
		if keep(i) {
			out.rows = append(out.rows, append([]any(nil), r...))
		}
	}
	return out
}

// Select projects the named columns into a new table
func (t *Table) Select(names ...string) (*Table, error) {
	if err := t.Require(names...); err != nil {
		return nil, err
	}

	cols := make([]Column, len(names))
	pos := make([]int, len(names))
	for j, n := range names {
		pos[j] = t.index[n]
		cols[j] = t.cols[pos[j]]
	}

	out := New(cols...)
	for _, r := range t.rows {
		row := make([]any, len(pos))
		for j, p := range pos {
			row[j] = r[p]
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// Concat stacks tables sharing the same column names. Kinds follow the first table.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return New(), nil
	}

	out := New(tables[0].cols...)
	for _, t := range tables {
		if t.Width() != out.Width() {
			return nil, fmt.Errorf("table: concat width mismatch %d vs %d", t.Width(), out.Width())
		}
		for _, r := range t.rows {
			row := make([]any, len(out.cols))
			for j, c := range out.cols {
				p, ok := t.index[c.Name]
				if !ok {
					return nil, fmt.Errorf("table: concat missing column %q", c.Name)
				}
				cell, err := coerce(c, r[p])
				if err != nil {
					return nil, err
				}
				row[j] = cell
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// Rows returns the row slices. Callers must not mutate them.
func (t *Table) Rows() [][]any {
	return t.rows
}

// WithColumn returns a copy of t with a column replaced or appended.
// fn computes the new cell for each row.
func (t *Table) WithColumn(col Column, fn func(i int) any) (*Table, error) {
	cols := t.Columns()
	pos, exists := t.index[col.Name]
	if exists {
		cols[pos] = col
	} else {
		cols = append(cols, col)
		pos = len(cols) - 1
	}

	out := New(cols...)
	for i, r := range t.rows {
		row := make([]any, len(cols))
		copy(row, r)
		cell, err := coerce(col, fn(i))
		if err != nil {
			return nil, err
		}
		row[pos] = cell
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// Distinct counts distinct non-missing values of a column
func (t *Table) Distinct(name string) int {
	seen := make(map[string]struct{})
	for i := range t.rows {
		if t.Value(i, name) == nil {
			continue
		}
		seen[t.Str(i, name)] = struct{}{}
	}
	return len(seen)
}
