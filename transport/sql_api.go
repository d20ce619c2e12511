package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"lightdash-go/domain"
)

// SQLJobStatus is the scheduler state of a submitted SQL runner job.
type SQLJobStatus string

// Scheduler job states.
const (
	SQLJobScheduled SQLJobStatus = "scheduled"
	SQLJobStarted   SQLJobStatus = "started"
	SQLJobCompleted SQLJobStatus = "completed"
	SQLJobError     SQLJobStatus = "error"
)

// SQLSubmission is the immediate response to a SQL runner run request.
// Either JobID is set and the caller polls, or Rows carries a
// synchronous result.
type SQLSubmission struct {
	JobID string
	Rows  []domain.Row
}

// SQLJobResult is the state of a SQL runner job after one status poll.
type SQLJobResult struct {
	Status     SQLJobStatus
	Columns    []string
	ResultsURL string
	Error      string
}

// resultsPathPattern extracts the project-relative results path from
// the absolute file URL the scheduler reports.
var resultsPathPattern = regexp.MustCompile(`/api/v1/projects/.+/sqlRunner/results/.+`)

// RunSQL submits raw SQL for execution against the project warehouse.
func (c *Client) RunSQL(ctx context.Context, sql string, limit int) (SQLSubmission, error) {
	var results struct {
		JobID string       `json:"jobId"`
		Rows  []domain.Row `json:"rows"`
	}
	path := fmt.Sprintf("/api/v1/projects/%s/sqlRunner/run", c.projectUUID)
	body := map[string]any{"sql": sql, "limit": limit}
	if err := c.do(ctx, http.MethodPost, path, nil, body, &results); err != nil {
		return SQLSubmission{}, err
	}
	return SQLSubmission{JobID: results.JobID, Rows: results.Rows}, nil
}

// SQLJob fetches the scheduler status of a SQL runner job.
func (c *Client) SQLJob(ctx context.Context, jobID string) (SQLJobResult, error) {
	var results struct {
		Status  string `json:"status"`
		Details struct {
			FileURL string `json:"fileUrl"`
			Error   string `json:"error"`
			Columns []struct {
				Name      string `json:"name"`
				Reference string `json:"reference"`
			} `json:"columns"`
		} `json:"details"`
	}
	path := fmt.Sprintf("/api/v1/schedulers/job/%s/status", jobID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &results); err != nil {
		return SQLJobResult{}, err
	}

	job := SQLJobResult{Status: SQLJobStatus(results.Status), Error: results.Details.Error}
	for _, col := range results.Details.Columns {
		name := col.Reference
		if name == "" {
			name = col.Name
		}
		job.Columns = append(job.Columns, name)
	}
	if match := resultsPathPattern.FindString(results.Details.FileURL); match != "" {
		job.ResultsURL = match
	}
	return job, nil
}

// FetchSQLResults downloads a completed job's result file and decodes
// its JSONL body, one row per line.
func (c *Client) FetchSQLResults(ctx context.Context, resultsURL string) ([]domain.Row, error) {
	resp, err := c.send(ctx, http.MethodGet, resultsURL, url.Values{}, nil, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, apiError(resp.StatusCode, http.StatusText(resp.StatusCode), "fetch sql results")
	}

	var rows []domain.Row
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row domain.Row
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			return nil, fmt.Errorf("decode sql result row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read sql results: %w", err)
	}
	return rows, nil
}

// SQLTable describes one warehouse table visible to the SQL runner.
type SQLTable struct {
	Database string `json:"database"`
	Schema   string `json:"schema"`
	Table    string `json:"table"`
}

// SQLTables lists the warehouse tables available to raw SQL.
func (c *Client) SQLTables(ctx context.Context) ([]SQLTable, error) {
	var results []SQLTable
	path := fmt.Sprintf("/api/v1/projects/%s/sqlRunner/tables", c.projectUUID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}
