// Package catalog fetches and memoizes model, dimension, and metric
// metadata from a Lightdash project.
//
// Metadata loads lazily on first access and is cached until Refresh is
// called. Field references returned here are plain values; filters and
// queries can also be built from hand-written refs without touching
// the catalog at all.
package catalog

import (
	"context"
	"fmt"
	"sync"

	"lightdash-go/domain"
	"lightdash-go/query"
)

// ModelSummary is one entry of the project explore listing.
type ModelSummary struct {
	Name         string
	Label        string
	Type         string
	DatabaseName string
	SchemaName   string
	Description  string
}

// Explore is the full metadata of one model.
type Explore struct {
	Name       string
	Dimensions []domain.Field
	Metrics    []domain.Field
}

// API is the metadata contract the catalog needs from the REST layer.
type API interface {
	ListExplores(ctx context.Context) ([]ModelSummary, error)
	GetExplore(ctx context.Context, name string) (Explore, error)
}

// Catalog is the lazily populated model cache for one project.
type Catalog struct {
	api API

	mu     sync.Mutex
	models map[string]*Model
	order  []string
}

// New creates an empty catalog over the metadata API.
func New(api API) *Catalog {
	return &Catalog{api: api}
}

// Models lists all models of the project, fetching the listing on
// first call.
func (c *Catalog) Models(ctx context.Context) ([]*Model, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Model, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.models[name])
	}
	return out, nil
}

// Model returns the named model. A miss carries close-match
// suggestions on the returned NotFoundError.
func (c *Catalog) Model(ctx context.Context, name string) (*Model, error) {
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.models[name]; ok {
		return m, nil
	}
	return nil, &domain.NotFoundError{
		Kind:        "model",
		Name:        name,
		Suggestions: closeMatches(name, c.order),
	}
}

// Refresh drops all cached metadata. The next access refetches.
func (c *Catalog) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = nil
	c.order = nil
}

func (c *Catalog) ensureLoaded(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.models != nil {
		return nil
	}
	summaries, err := c.api.ListExplores(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	c.models = make(map[string]*Model, len(summaries))
	c.order = make([]string, 0, len(summaries))
	for _, s := range summaries {
		c.models[s.Name] = &Model{ModelSummary: s, api: c.api}
		c.order = append(c.order, s.Name)
	}
	return nil
}

// Model is one explore with lazily loaded dimensions and metrics.
type Model struct {
	ModelSummary

	api API

	mu     sync.Mutex
	loaded bool
	dims   []domain.Field
	mets   []domain.Field
}

// Query starts a query builder against this model.
func (m *Model) Query() query.Query {
	return query.New(m.Name)
}

// Dimensions lists the model's dimensions, fetching explore metadata
// on first access.
func (m *Model) Dimensions(ctx context.Context) ([]domain.Field, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return m.dims, nil
}

// Metrics lists the model's metrics.
func (m *Model) Metrics(ctx context.Context) ([]domain.Field, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return m.mets, nil
}

// Dimension returns the named dimension, with suggestions on a miss.
func (m *Model) Dimension(ctx context.Context, name string) (domain.Field, error) {
	return m.lookup(ctx, name, "dimension")
}

// Metric returns the named metric, with suggestions on a miss.
func (m *Model) Metric(ctx context.Context, name string) (domain.Field, error) {
	return m.lookup(ctx, name, "metric")
}

// Resolve returns the dimension or metric with the given name,
// checking dimensions first. A miss carries suggestions drawn from
// both field sets.
func (m *Model) Resolve(ctx context.Context, name string) (domain.Field, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return domain.Field{}, err
	}
	for _, f := range m.dims {
		if f.Name == name {
			return f, nil
		}
	}
	for _, f := range m.mets {
		if f.Name == name {
			return f, nil
		}
	}
	names := make([]string, 0, len(m.dims)+len(m.mets))
	for _, f := range m.dims {
		names = append(names, f.Name)
	}
	for _, f := range m.mets {
		names = append(names, f.Name)
	}
	return domain.Field{}, &domain.NotFoundError{
		Kind:        "field",
		Name:        name,
		Suggestions: closeMatches(name, names),
	}
}

func (m *Model) lookup(ctx context.Context, name, kind string) (domain.Field, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return domain.Field{}, err
	}
	fields := m.dims
	if kind == "metric" {
		fields = m.mets
	}
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		if f.Name == name {
			return f, nil
		}
		names = append(names, f.Name)
	}
	return domain.Field{}, &domain.NotFoundError{
		Kind:        kind,
		Name:        name,
		Suggestions: closeMatches(name, names),
	}
}

func (m *Model) ensureLoaded(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded {
		return nil
	}
	explore, err := m.api.GetExplore(ctx, m.Name)
	if err != nil {
		return fmt.Errorf("fetch explore %s: %w", m.Name, err)
	}
	m.dims = explore.Dimensions
	m.mets = explore.Metrics
	m.loaded = true
	return nil
}
