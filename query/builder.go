// Package query builds metric queries, drives their asynchronous
// execution, and exposes paginated results.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"lightdash-go/domain"
	"lightdash-go/filter"
)

// Result limits accepted by the API.
const (
	DefaultLimit = 500
	MaxLimit     = 50000
)

// Query is an immutable metric query descriptor. Builder methods
// return a new Query and never modify the receiver, so a base query
// can be branched into variants safely:
//
//	base := query.New("orders").Metrics(revenue)
//	usa := base.Filter(usaFilter)
//	uk := base.Filter(ukFilter)
//
// Building is pure data construction; no I/O happens until the query
// is passed to an Executor. Invalid inputs stick to the descriptor and
// surface from Err or Payload.
type Query struct {
	model      string
	metrics    []domain.Field
	dimensions []domain.Field
	filter     filter.Node
	sorts      []domain.Sort
	limit      int
	err        error
}

// New creates an empty query against the named model with the default
// row limit.
func New(model string) Query {
	return Query{model: model, limit: DefaultLimit}
}

// Model returns the target model name.
func (q Query) Model() string { return q.model }

// Err returns the first validation error recorded by a builder method.
func (q Query) Err() error { return q.err }

// Metrics returns a new query with the metrics appended.
func (q Query) Metrics(fields ...domain.Field) Query {
	return q.withFields(domain.KindMetric, fields)
}

// Dimensions returns a new query with the dimensions appended.
func (q Query) Dimensions(fields ...domain.Field) Query {
	return q.withFields(domain.KindDimension, fields)
}

func (q Query) withFields(kind domain.FieldKind, fields []domain.Field) Query {
	if q.err != nil {
		return q
	}
	next := q.clone()
	dst := q.dimensions
	if kind == domain.KindMetric {
		dst = q.metrics
	}
	seen := make(map[string]bool, len(dst)+len(fields))
	for _, f := range dst {
		seen[f.FieldID()] = true
	}
	out := append([]domain.Field(nil), dst...)
	for _, f := range fields {
		if f.Name == "" {
			next.err = domain.ErrValidation("%s reference has no name", kind)
			return next
		}
		if f.ModelName != "" && f.ModelName != q.model {
			next.err = domain.ErrValidation("%s %q belongs to model %q, query targets %q", kind, f.Name, f.ModelName, q.model)
			return next
		}
		if seen[f.FieldID()] {
			next.err = domain.ErrValidation("duplicate %s %q", kind, f.FieldID())
			return next
		}
		seen[f.FieldID()] = true
		out = append(out, f)
	}
	if kind == domain.KindMetric {
		next.metrics = out
	} else {
		next.dimensions = out
	}
	return next
}

// Filter returns a new query with the filter applied. Repeated calls
// combine with the existing filter via AND rather than replacing it.
func (q Query) Filter(node filter.Node) Query {
	if q.err != nil || node == nil {
		return q
	}
	next := q.clone()
	if q.filter == nil {
		next.filter = node
	} else {
		next.filter = filter.And(q.filter, node)
	}
	return next
}

// Sort returns a new query with the sort specs appended.
func (q Query) Sort(sorts ...domain.Sort) Query {
	if q.err != nil {
		return q
	}
	next := q.clone()
	for _, s := range sorts {
		if s.FieldID == "" {
			next.err = domain.ErrValidation("sort has no field id")
			return next
		}
	}
	next.sorts = append(append([]domain.Sort(nil), q.sorts...), sorts...)
	return next
}

// Limit returns a new query with the row limit set.
func (q Query) Limit(n int) Query {
	if q.err != nil {
		return q
	}
	next := q.clone()
	if n < 1 || n > MaxLimit {
		next.err = domain.ErrValidation("limit must be between 1 and %d, got %d", MaxLimit, n)
		return next
	}
	next.limit = n
	return next
}

func (q Query) clone() Query {
	return Query{
		model:      q.model,
		metrics:    q.metrics,
		dimensions: q.dimensions,
		filter:     q.filter,
		sorts:      q.sorts,
		limit:      q.limit,
		err:        q.err,
	}
}

// Payload builds the metric-query request body.
func (q Query) Payload() (map[string]any, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.model == "" {
		return nil, domain.ErrValidation("query has no model")
	}

	metricIDs := make([]string, 0, len(q.metrics))
	for _, f := range q.metrics {
		metricIDs = append(metricIDs, f.FieldID())
	}
	dimensionIDs := make([]string, 0, len(q.dimensions))
	for _, f := range q.dimensions {
		dimensionIDs = append(dimensionIDs, f.FieldID())
	}
	sorts := make([]any, 0, len(q.sorts))
	for _, s := range q.sorts {
		sorts = append(sorts, s.Wire())
	}

	return map[string]any{
		"exploreName":       q.model,
		"metrics":           metricIDs,
		"dimensions":        dimensionIDs,
		"filters":           filter.Envelope(q.filter),
		"sorts":             sorts,
		"limit":             q.limit,
		"tableCalculations": []any{},
	}, nil
}

// Equal reports structural equality: same model, same metrics,
// dimensions, and sorts in the same order, same limit, and a filter
// tree with identical structure.
func (q Query) Equal(other Query) bool {
	a, errA := q.CacheKey()
	b, errB := other.CacheKey()
	if errA != nil || errB != nil {
		return false
	}
	return a == b
}

// CacheKey returns a stable hash of the descriptor, usable as a cache
// key by callers that memoize query results.
func (q Query) CacheKey() (string, error) {
	payload, err := q.Payload()
	if err != nil {
		return "", err
	}
	// encoding/json sorts map keys, so the encoding is canonical.
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode query payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
