// Package lightdash is a client SDK for the Lightdash semantic layer.
// It exposes project metadata as models with typed dimensions and
// metrics, immutable filter and query builders, asynchronous query
// execution, and lazily paginated results.
//
// Typical use:
//
//	client, err := lightdash.NewClient(lightdash.ConfigFromEnv())
//	if err != nil { ... }
//
//	orders, err := client.Model(ctx, "orders")
//	revenue, err := orders.Metric(ctx, "revenue")
//	country, err := orders.Dimension(ctx, "country")
//
//	usa, err := filter.Equals(country, "USA")
//	rs, err := client.Run(ctx, orders.Query().
//		Metrics(revenue).
//		Dimensions(country).
//		Filter(usa).
//		Limit(100))
package lightdash

import (
	"context"

	"lightdash-go/catalog"
	"lightdash-go/query"
	"lightdash-go/sqlrunner"
	"lightdash-go/transport"
)

// Client is the entry point of the SDK. It bundles the REST transport,
// the model catalog, the query executor, and the SQL runner for one
// project. It is safe for concurrent use.
type Client struct {
	config   Config
	api      *transport.Client
	catalog  *catalog.Catalog
	executor *query.Executor
	runner   *sqlrunner.Runner
}

// NewClient validates the config and wires up a client.
func NewClient(config Config) (*Client, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	api := transport.NewClient(config.InstanceURL, config.AccessToken, config.ProjectUUID, transport.Options{
		HTTPClient:      config.HTTPClient,
		Limiter:         config.Limiter,
		Logger:          config.Logger,
		InvalidateCache: config.InvalidateCache,
	})
	return &Client{
		config:  config,
		api:     api,
		catalog: catalog.New(api),
		executor: query.NewExecutor(api, query.Options{
			PollInterval: config.PollInterval,
			Timeout:      config.Timeout,
			PageSize:     config.PageSize,
			Logger:       config.Logger,
		}),
		runner: sqlrunner.New(api, sqlrunner.Options{
			PollInterval: config.PollInterval,
			Timeout:      config.Timeout,
			Logger:       config.Logger,
		}),
	}, nil
}

// ProjectUUID returns the project this client is bound to.
func (c *Client) ProjectUUID() string { return c.config.ProjectUUID }

// Models lists the project's models.
func (c *Client) Models(ctx context.Context) ([]*catalog.Model, error) {
	return c.catalog.Models(ctx)
}

// Model returns the named model, with close-match suggestions on a
// miss.
func (c *Client) Model(ctx context.Context, name string) (*catalog.Model, error) {
	return c.catalog.Model(ctx, name)
}

// Refresh drops all cached metadata.
func (c *Client) Refresh() {
	c.catalog.Refresh()
}

// Query starts a query builder against the named model without
// touching the catalog.
func (c *Client) Query(model string) query.Query {
	return query.New(model)
}

// Run submits the query and blocks until it completes, fails, is
// cancelled, or exhausts the poll budget.
func (c *Client) Run(ctx context.Context, q query.Query) (*query.ResultSet, error) {
	return c.executor.Execute(ctx, q)
}

// Cancel asks the server to cancel a running query.
func (c *Client) Cancel(ctx context.Context, queryUUID string) error {
	return c.executor.Cancel(ctx, queryUUID)
}

// SQL executes raw SQL against the project warehouse. A non-positive
// limit means the default (500).
func (c *Client) SQL(ctx context.Context, sql string, limit int) (*sqlrunner.Result, error) {
	return c.runner.Execute(ctx, sql, limit)
}

// SQLTables lists the warehouse tables visible to raw SQL.
func (c *Client) SQLTables(ctx context.Context) ([]transport.SQLTable, error) {
	return c.api.SQLTables(ctx)
}
