// Package dataset loads per-event tables of simulated samples and turns them into the signal and background partitions
// consumed by training.
package dataset

import (
	"fmt"
	"sort"
)

// Table is a set of named columns of equal length; each row is one event.
type Table struct {
	Columns map[string][]float64
	Rows    int
}

// NewTable creates a table from columns, checking that they all have the same length.
func NewTable(columns map[string][]float64) (Table, error) {
	t := Table{Columns: columns, Rows: -1}
	for _, name := range t.Names() {
		if t.Rows < 0 {
			t.Rows = len(columns[name])
		} else if len(columns[name]) != t.Rows {
			return Table{}, fmt.Errorf("column %s has %d rows, expected %d", name, len(columns[name]), t.Rows)
		}
	}
	if t.Rows < 0 {
		t.Rows = 0
	}
	return t, nil
}

// Names returns the column names in sorted order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Column returns the values of a column.
func (t Table) Column(name string) ([]float64, error) {
	c, ok := t.Columns[name]
	if !ok {
		return nil, fmt.Errorf("no column named %s", name)
	}
	return c, nil
}

// Slice returns a new table holding the rows [from, to) of t. The underlying arrays are shared.
func (t Table) Slice(from, to int) Table {
	s := Table{Columns: make(map[string][]float64, len(t.Columns)), Rows: to - from}
	for name, c := range t.Columns {
		s.Columns[name] = c[from:to]
	}
	return s
}

// Split returns the rows of t that fall into the fractional range [lo, hi).
func Split(t Table, lo, hi float64) Table {
	from := int(lo * float64(t.Rows))
	to := int(hi * float64(t.Rows))
	if to > t.Rows {
		to = t.Rows
	}
	if from > to {
		from = to
	}
	return t.Slice(from, to)
}
