package query

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"lightdash-go/domain"
)

// FrameWriter receives materialized rows for conversion into a tabular
// structure. Implementations adapt the rows to a specific dataframe or
// table library; the SDK only defines the boundary.
type FrameWriter interface {
	// WriteFrame appends rows under the given column labels. It may be
	// called once with all rows or repeatedly, page by page.
	WriteFrame(columns []string, rows []domain.Row) error
}

// ResultSet exposes the rows of a completed query. Pages are fetched
// lazily on first access and cached for the lifetime of the ResultSet;
// results are a snapshot of a finished query, so cached pages are
// never invalidated.
//
// The page cache is safe for concurrent readers. Concurrent first-time
// access to the same uncached page is safe but may fetch that page
// from the API more than once; the fetches are not deduplicated.
type ResultSet struct {
	transport Transport

	queryUUID    string
	fields       domain.Fields
	labels       map[string]string
	totalResults int
	totalPages   int
	pageSize     int

	mu      sync.Mutex
	pages   map[int]domain.ResultPage
	records []domain.Row
}

func newResultSet(transport Transport, queryUUID string, fields domain.Fields, status domain.StatusResponse, pageSize int) *ResultSet {
	rs := &ResultSet{
		transport:    transport,
		queryUUID:    queryUUID,
		fields:       fields,
		labels:       buildLabels(fields),
		totalResults: status.TotalResults,
		totalPages:   status.TotalPages,
		pageSize:     pageSize,
		pages:        make(map[int]domain.ResultPage),
	}
	if rs.totalPages < 1 {
		rs.totalPages = 1
	}
	if status.Page != nil {
		rs.pages[1] = rs.transformPage(*status.Page)
	}
	return rs
}

func buildLabels(fields domain.Fields) map[string]string {
	labels := make(map[string]string, len(fields))
	for id := range fields {
		labels[id] = fields.Label(id)
	}
	return labels
}

// QueryUUID returns the identifier of the completed query.
func (rs *ResultSet) QueryUUID() string { return rs.queryUUID }

// Fields returns the result field metadata.
func (rs *ResultSet) Fields() domain.Fields { return rs.fields }

// Len returns the total row count across all pages. No page is fetched.
func (rs *ResultSet) Len() int { return rs.totalResults }

// TotalPages returns the number of result pages.
func (rs *ResultSet) TotalPages() int { return rs.totalPages }

// Columns returns the result column labels in stable (field id) order.
func (rs *ResultSet) Columns() []string {
	ids := make([]string, 0, len(rs.fields))
	for id := range rs.fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	columns := make([]string, len(ids))
	for i, id := range ids {
		columns[i] = rs.labels[id]
	}
	return columns
}

// Page returns the 1-indexed page n, fetching it on first access and
// serving it from cache afterwards.
func (rs *ResultSet) Page(ctx context.Context, n int) (domain.ResultPage, error) {
	if n < 1 || n > rs.totalPages {
		return domain.ResultPage{}, &domain.PageOutOfRangeError{Page: n, TotalPages: rs.totalPages}
	}

	rs.mu.Lock()
	page, ok := rs.pages[n]
	rs.mu.Unlock()
	if ok {
		return page, nil
	}

	raw, err := rs.transport.FetchPage(ctx, rs.queryUUID, n, rs.pageSize)
	if err != nil {
		return domain.ResultPage{}, fmt.Errorf("fetch page %d of query %s: %w", n, rs.queryUUID, err)
	}
	page = rs.transformPage(raw)
	page.PageNumber = n

	rs.mu.Lock()
	rs.pages[n] = page
	rs.mu.Unlock()
	return page, nil
}

// EachPage walks pages 1..TotalPages in order, fetching lazily, and
// calls fn for each. Iteration is restartable: every call walks from
// page 1 again, with cached pages served without refetching.
func (rs *ResultSet) EachPage(ctx context.Context, fn func(domain.ResultPage) error) error {
	for n := 1; n <= rs.totalPages; n++ {
		page, err := rs.Page(ctx, n)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

// EachRow walks all rows in page order, fetching pages as needed.
func (rs *ResultSet) EachRow(ctx context.Context, fn func(domain.Row) error) error {
	return rs.EachPage(ctx, func(page domain.ResultPage) error {
		for _, row := range page.Rows {
			if err := fn(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// Records fetches every page and returns all rows flattened in page
// order. Rows are not deduplicated. The flattened slice is memoized.
func (rs *ResultSet) Records(ctx context.Context) ([]domain.Row, error) {
	rs.mu.Lock()
	cached := rs.records
	rs.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	records := make([]domain.Row, 0, rs.totalResults)
	err := rs.EachPage(ctx, func(page domain.ResultPage) error {
		records = append(records, page.Rows...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	rs.mu.Lock()
	rs.records = records
	rs.mu.Unlock()
	return records, nil
}

// JSONString returns all rows as a JSON array string.
func (rs *ResultSet) JSONString(ctx context.Context) (string, error) {
	records, err := rs.Records(ctx)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode records: %w", err)
	}
	return string(raw), nil
}

// WriteTo materializes all rows and hands them to the frame writer in
// a single call.
func (rs *ResultSet) WriteTo(ctx context.Context, w FrameWriter) error {
	records, err := rs.Records(ctx)
	if err != nil {
		return err
	}
	return w.WriteFrame(rs.Columns(), records)
}

// StreamTo hands rows to the frame writer one page at a time, so the
// consumer controls how much is materialized at once.
func (rs *ResultSet) StreamTo(ctx context.Context, w FrameWriter) error {
	columns := rs.Columns()
	return rs.EachPage(ctx, func(page domain.ResultPage) error {
		return w.WriteFrame(columns, page.Rows)
	})
}

// transformPage maps raw API rows to label-keyed rows with scalar
// values. The v2 API returns scalars directly; v1-style cells nest the
// raw value under value.raw.
func (rs *ResultSet) transformPage(raw domain.ResultPage) domain.ResultPage {
	rows := make([]domain.Row, len(raw.Rows))
	for i, row := range raw.Rows {
		out := make(domain.Row, len(row))
		for fieldID, value := range row {
			label, ok := rs.labels[fieldID]
			if !ok {
				label = fieldID
			}
			out[label] = unwrapCell(value)
		}
		rows[i] = out
	}
	count := raw.RowCount
	if count == 0 {
		count = len(rows)
	}
	return domain.ResultPage{PageNumber: raw.PageNumber, Rows: rows, RowCount: count}
}

func unwrapCell(value any) any {
	cell, ok := value.(map[string]any)
	if !ok {
		return value
	}
	inner, ok := cell["value"].(map[string]any)
	if !ok {
		return value
	}
	if raw, ok := inner["raw"]; ok {
		return raw
	}
	return inner
}
