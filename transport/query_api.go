package transport

import (
	"context"
	"fmt"
	"net/http"

	"lightdash-go/domain"
)

// wireField is the per-field metadata shape of the v2 query API.
type wireField struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

func toFields(raw map[string]wireField) domain.Fields {
	fields := make(domain.Fields, len(raw))
	for id, f := range raw {
		fields[id] = domain.FieldInfo{Name: f.Name, Label: f.Label, Type: domain.FieldType(f.Type)}
	}
	return fields
}

// SubmitQuery submits a compiled metric query and returns the query
// UUID plus the result field metadata the server already knows.
func (c *Client) SubmitQuery(ctx context.Context, payload map[string]any) (string, domain.Fields, error) {
	body := map[string]any{
		"query":           payload,
		"context":         "api",
		"invalidateCache": c.invalidateCache,
	}
	var results struct {
		QueryUUID string               `json:"queryUuid"`
		Fields    map[string]wireField `json:"fields"`
	}
	path := fmt.Sprintf("/api/v2/projects/%s/query/metric-query", c.projectUUID)
	if err := c.do(ctx, http.MethodPost, path, nil, body, &results); err != nil {
		return "", nil, err
	}
	if results.QueryUUID == "" {
		return "", nil, fmt.Errorf("submit query: server returned no query uuid")
	}
	return results.QueryUUID, toFields(results.Fields), nil
}

// queryStatusResults is the v2 query status/page response body.
type queryStatusResults struct {
	Status       string               `json:"status"`
	Error        string               `json:"error"`
	Rows         []domain.Row         `json:"rows"`
	TotalResults int                  `json:"totalResults"`
	TotalPages   int                  `json:"totalPageCount"`
	Fields       map[string]wireField `json:"fields"`
}

// PollStatus fetches the current state of an asynchronous query. When
// the query is ready the response carries the requested page.
func (c *Client) PollStatus(ctx context.Context, queryUUID string, page, pageSize int) (domain.StatusResponse, error) {
	var results queryStatusResults
	path := fmt.Sprintf("/api/v2/projects/%s/query/%s", c.projectUUID, queryUUID)
	if err := c.do(ctx, http.MethodGet, path, pageParams(page, pageSize), nil, &results); err != nil {
		return domain.StatusResponse{}, err
	}

	status := domain.StatusResponse{
		Status:       domain.QueryStatus(results.Status),
		TotalResults: results.TotalResults,
		TotalPages:   results.TotalPages,
		Fields:       toFields(results.Fields),
		ErrorMessage: results.Error,
	}
	if status.Status == domain.StatusReady {
		status.Page = &domain.ResultPage{
			PageNumber: page,
			Rows:       results.Rows,
			RowCount:   len(results.Rows),
		}
	}
	return status, nil
}

// FetchPage fetches one page of a completed query.
func (c *Client) FetchPage(ctx context.Context, queryUUID string, page, pageSize int) (domain.ResultPage, error) {
	status, err := c.PollStatus(ctx, queryUUID, page, pageSize)
	if err != nil {
		return domain.ResultPage{}, err
	}
	if status.Status != domain.StatusReady || status.Page == nil {
		return domain.ResultPage{}, fmt.Errorf("fetch page %d of query %s: query is %s", page, queryUUID, status.Status)
	}
	return *status.Page, nil
}

// CancelQuery asks the server to cancel a running query.
func (c *Client) CancelQuery(ctx context.Context, queryUUID string) error {
	path := fmt.Sprintf("/api/v2/projects/%s/query/%s/cancel", c.projectUUID, queryUUID)
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}
