package transport

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"lightdash-go/catalog"
	"lightdash-go/domain"
)

// exploreSummary is one entry of the v1 explore listing.
type exploreSummary struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	Type         string `json:"type"`
	DatabaseName string `json:"databaseName"`
	SchemaName   string `json:"schemaName"`
	Description  string `json:"description"`
}

// ListExplores lists the project's explores in server order.
func (c *Client) ListExplores(ctx context.Context) ([]catalog.ModelSummary, error) {
	var results []exploreSummary
	path := fmt.Sprintf("/api/v1/projects/%s/explores", c.projectUUID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &results); err != nil {
		return nil, err
	}
	summaries := make([]catalog.ModelSummary, len(results))
	for i, e := range results {
		summaries[i] = catalog.ModelSummary{
			Name:         e.Name,
			Label:        e.Label,
			Type:         e.Type,
			DatabaseName: e.DatabaseName,
			SchemaName:   e.SchemaName,
			Description:  e.Description,
		}
	}
	return summaries, nil
}

// exploreField is the dimension/metric shape of the explore detail
// endpoint.
type exploreField struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Hidden      bool   `json:"hidden"`
}

type exploreTable struct {
	Dimensions map[string]exploreField `json:"dimensions"`
	Metrics    map[string]exploreField `json:"metrics"`
}

type exploreDetail struct {
	Name      string                  `json:"name"`
	BaseTable string                  `json:"baseTable"`
	Tables    map[string]exploreTable `json:"tables"`
}

// GetExplore fetches the full metadata of one explore. Fields come
// from the explore's base table; hidden fields are skipped.
func (c *Client) GetExplore(ctx context.Context, name string) (catalog.Explore, error) {
	var results exploreDetail
	path := fmt.Sprintf("/api/v1/projects/%s/explores/%s", c.projectUUID, name)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &results); err != nil {
		return catalog.Explore{}, err
	}
	table, ok := results.Tables[results.BaseTable]
	if !ok {
		return catalog.Explore{}, fmt.Errorf("explore %s: base table %q missing from response", name, results.BaseTable)
	}
	return catalog.Explore{
		Name:       name,
		Dimensions: toFieldRefs(table.Dimensions, name, domain.KindDimension),
		Metrics:    toFieldRefs(table.Metrics, name, domain.KindMetric),
	}, nil
}

func toFieldRefs(raw map[string]exploreField, modelName string, kind domain.FieldKind) []domain.Field {
	fields := make([]domain.Field, 0, len(raw))
	for _, f := range raw {
		if f.Hidden {
			continue
		}
		fields = append(fields, domain.Field{
			Name:        f.Name,
			ModelName:   modelName,
			Label:       f.Label,
			Description: f.Description,
			Kind:        kind,
			Type:        fieldType(f.Type),
		})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	return fields
}

// fieldType normalizes the server's dimension/metric type vocabulary
// onto the filter type system. Metric aggregates (sum, count, avg and
// friends) all produce numbers.
func fieldType(raw string) domain.FieldType {
	switch raw {
	case "string":
		return domain.TypeString
	case "number", "sum", "count", "count_distinct", "avg", "min", "max", "median", "percentile":
		return domain.TypeNumber
	case "boolean":
		return domain.TypeBoolean
	case "date":
		return domain.TypeDate
	case "timestamp":
		return domain.TypeTimestamp
	default:
		return domain.FieldType(raw)
	}
}
