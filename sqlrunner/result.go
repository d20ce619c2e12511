package sqlrunner

import (
	"encoding/json"
	"fmt"
	"sort"

	"lightdash-go/domain"
	"lightdash-go/query"
)

// Result holds the full row set of a finished SQL query. Unlike metric
// query results it is fully materialized; the result file is small by
// construction because raw SQL carries an explicit row limit.
type Result struct {
	rows    []domain.Row
	columns []string
}

func newResult(rows []domain.Row, columns []string) *Result {
	if len(columns) == 0 && len(rows) > 0 {
		for col := range rows[0] {
			columns = append(columns, col)
		}
		sort.Strings(columns)
	}
	return &Result{rows: rows, columns: columns}
}

// Len returns the number of rows.
func (r *Result) Len() int { return len(r.rows) }

// Columns returns the result column names.
func (r *Result) Columns() []string { return r.columns }

// Records returns all rows.
func (r *Result) Records() []domain.Row { return r.rows }

// Each calls fn for every row in order.
func (r *Result) Each(fn func(domain.Row) error) error {
	for _, row := range r.rows {
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}

// JSONString returns all rows as a JSON array string.
func (r *Result) JSONString() (string, error) {
	rows := r.rows
	if rows == nil {
		rows = []domain.Row{}
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode sql rows: %w", err)
	}
	return string(raw), nil
}

// WriteTo hands the rows to a frame writer in a single call.
func (r *Result) WriteTo(w query.FrameWriter) error {
	return w.WriteFrame(r.columns, r.rows)
}
