package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	lightdash "lightdash-go"
	"lightdash-go/catalog"
	"lightdash-go/domain"
	"lightdash-go/filter"
	"lightdash-go/query"
)

// querySpec is the JSON shape of a query file passed to `query run`.
// Filters and sorts use the same expression syntax as the flags.
type querySpec struct {
	Model      string   `json:"model"`
	Metrics    []string `json:"metrics"`
	Dimensions []string `json:"dimensions"`
	Filters    []string `json:"filters"`
	Sorts      []string `json:"sorts"`
	Limit      int      `json:"limit"`
}

func newQueryCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run metric queries",
	}
	cmd.AddCommand(newQueryRunCmd(s))
	return cmd
}

func newQueryRunCmd(s *settings) *cobra.Command {
	var (
		model      string
		metrics    []string
		dimensions []string
		filters    []string
		sorts      []string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "run [file...]",
		Short: "Run one or more metric queries",
		Long: "Run a metric query built from flags, or one query per JSON file. " +
			"Multiple files run concurrently.",
		Example: `  # Ad hoc query from flags
  lightdash query run --model orders --metrics revenue --dimensions country --limit 100

  # Filtered and sorted
  lightdash query run --model orders --metrics revenue --filter "country=DK" --sort revenue:desc

  # Queries from files, run concurrently
  lightdash query run daily_revenue.json weekly_orders.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := s.client()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				if model == "" {
					return fmt.Errorf("either query files or --model is required")
				}
				spec := querySpec{
					Model:      model,
					Metrics:    metrics,
					Dimensions: dimensions,
					Filters:    filters,
					Sorts:      sorts,
					Limit:      limit,
				}
				return runOne(cmd.Context(), client, spec, s.output, os.Stdout)
			}

			specs := make([]querySpec, len(args))
			for i, path := range args {
				spec, err := readQuerySpec(path)
				if err != nil {
					return err
				}
				specs[i] = spec
			}
			return runMany(cmd.Context(), client, specs, args, s.output)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model to query")
	cmd.Flags().StringSliceVar(&metrics, "metrics", nil, "Metric names")
	cmd.Flags().StringSliceVar(&dimensions, "dimensions", nil, "Dimension names")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, `Filter expression, e.g. "country=DK" or "revenue>100" (repeatable)`)
	cmd.Flags().StringSliceVar(&sorts, "sort", nil, `Sort field, "name" or "name:desc"`)
	cmd.Flags().IntVar(&limit, "limit", 0, "Row limit (default 500)")
	return cmd
}

func readQuerySpec(path string) (querySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return querySpec{}, fmt.Errorf("read query file: %w", err)
	}
	var spec querySpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return querySpec{}, fmt.Errorf("parse query file %s: %w", path, err)
	}
	if spec.Model == "" {
		return querySpec{}, fmt.Errorf("query file %s: model is required", path)
	}
	return spec, nil
}

func buildQuery(ctx context.Context, client *lightdash.Client, spec querySpec) (query.Query, error) {
	model, err := client.Model(ctx, spec.Model)
	if err != nil {
		return query.Query{}, err
	}

	q := model.Query()
	for _, name := range spec.Metrics {
		f, err := model.Metric(ctx, name)
		if err != nil {
			return query.Query{}, err
		}
		q = q.Metrics(f)
	}
	for _, name := range spec.Dimensions {
		f, err := model.Dimension(ctx, name)
		if err != nil {
			return query.Query{}, err
		}
		q = q.Dimensions(f)
	}
	for _, expr := range spec.Filters {
		cond, err := parseFilterExpr(ctx, model, expr)
		if err != nil {
			return query.Query{}, err
		}
		q = q.Filter(cond)
	}
	for _, expr := range spec.Sorts {
		s, err := parseSortExpr(ctx, model, expr)
		if err != nil {
			return query.Query{}, err
		}
		q = q.Sort(s)
	}
	if spec.Limit > 0 {
		q = q.Limit(spec.Limit)
	}
	return q, q.Err()
}

// filterOps in scan order: two-character operators first so "!=" is not
// read as "=" with a leading "!" in the field name.
var filterOps = []struct {
	token string
	op    filter.Operator
}{
	{"!=", filter.OpNotEquals},
	{"=", filter.OpEquals},
	{">", filter.OpGreaterThan},
	{"<", filter.OpLessThan},
	{"~", filter.OpInclude},
}

// parseFilterExpr turns "field<op>value" into a leaf condition, with
// the field resolved against the model's dimensions and metrics.
func parseFilterExpr(ctx context.Context, model *catalog.Model, expr string) (filter.Node, error) {
	for _, candidate := range filterOps {
		idx := strings.Index(expr, candidate.token)
		if idx <= 0 {
			continue
		}
		name := strings.TrimSpace(expr[:idx])
		raw := strings.TrimSpace(expr[idx+len(candidate.token):])

		f, err := model.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		return filter.New(f, candidate.op, parseFilterValue(raw))
	}
	return nil, fmt.Errorf("invalid filter %q: expected field=value, field!=value, field>value, field<value or field~value", expr)
}

// parseFilterValue keeps numbers and booleans typed so numeric
// comparisons are not sent as strings.
func parseFilterValue(raw string) any {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// parseSortExpr turns "field" or "field:desc" into a sort.
func parseSortExpr(ctx context.Context, model *catalog.Model, expr string) (domain.Sort, error) {
	name, direction, _ := strings.Cut(expr, ":")
	f, err := model.Resolve(ctx, strings.TrimSpace(name))
	if err != nil {
		return domain.Sort{}, err
	}
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "", "asc":
		return f.Asc(), nil
	case "desc":
		return f.Desc(), nil
	default:
		return domain.Sort{}, fmt.Errorf("invalid sort %q: direction must be asc or desc", expr)
	}
}

func runOne(ctx context.Context, client *lightdash.Client, spec querySpec, output string, w *os.File) error {
	q, err := buildQuery(ctx, client, spec)
	if err != nil {
		return err
	}
	rs, err := client.Run(ctx, q)
	if err != nil {
		return err
	}

	if output == "json" {
		raw, err := rs.JSONString(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, raw)
		return nil
	}

	records, err := rs.Records(ctx)
	if err != nil {
		return err
	}
	columns := rs.Columns()
	PrintTable(w, columns, rowCells(columns, records))
	fmt.Fprintf(w, "(%d rows)\n", rs.Len())
	return nil
}

// runMany executes the queries concurrently with bounded parallelism,
// serializing output per query.
func runMany(ctx context.Context, client *lightdash.Client, specs []querySpec, names []string, output string) error {
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i := range specs {
		spec, name := specs[i], names[i]
		g.Go(func() error {
			q, err := buildQuery(gctx, client, spec)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			rs, err := client.Run(gctx, q)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			records, err := rs.Records(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			mu.Lock()
			defer mu.Unlock()
			if output == "json" {
				return PrintJSON(os.Stdout, map[string]any{"query": name, "rows": records})
			}
			fmt.Fprintf(os.Stdout, "== %s ==\n", name)
			columns := rs.Columns()
			PrintTable(os.Stdout, columns, rowCells(columns, records))
			fmt.Fprintf(os.Stdout, "(%d rows)\n\n", rs.Len())
			return nil
		})
	}
	return g.Wait()
}
