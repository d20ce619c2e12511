package sqlrunner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightdash-go/domain"
	"lightdash-go/transport"
)

type fakeAPI struct {
	submission transport.SQLSubmission
	submitErr  error

	jobs   []transport.SQLJobResult // consumed in order; the last repeats
	jobErr error

	rows     []domain.Row
	fetchErr error

	lastSQL   string
	lastLimit int
	jobPolls  int
}

func (f *fakeAPI) RunSQL(_ context.Context, sql string, limit int) (transport.SQLSubmission, error) {
	f.lastSQL = sql
	f.lastLimit = limit
	if f.submitErr != nil {
		return transport.SQLSubmission{}, f.submitErr
	}
	return f.submission, nil
}

func (f *fakeAPI) SQLJob(_ context.Context, _ string) (transport.SQLJobResult, error) {
	f.jobPolls++
	if f.jobErr != nil {
		return transport.SQLJobResult{}, f.jobErr
	}
	idx := f.jobPolls - 1
	if idx >= len(f.jobs) {
		idx = len(f.jobs) - 1
	}
	return f.jobs[idx], nil
}

func (f *fakeAPI) FetchSQLResults(_ context.Context, _ string) ([]domain.Row, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.rows, nil
}

func newTestRunner(t *testing.T, api *fakeAPI, opts Options) *Runner {
	t.Helper()
	r := New(api, opts)
	now := time.Unix(0, 0)
	r.now = func() time.Time { return now }
	r.sleep = func(_ context.Context, d time.Duration) error {
		now = now.Add(d)
		return nil
	}
	return r
}

func TestExecute_CompletesAfterPolling(t *testing.T) {
	api := &fakeAPI{
		submission: transport.SQLSubmission{JobID: "job-1"},
		jobs: []transport.SQLJobResult{
			{Status: transport.SQLJobScheduled},
			{Status: transport.SQLJobStarted},
			{Status: transport.SQLJobCompleted, Columns: []string{"order_id"}, ResultsURL: "/api/v1/projects/p/sqlRunner/results/job-1"},
		},
		rows: []domain.Row{{"order_id": 1}, {"order_id": 2}},
	}
	r := newTestRunner(t, api, Options{})

	result, err := r.Execute(context.Background(), "SELECT order_id FROM orders", 100)
	require.NoError(t, err)

	assert.Equal(t, 3, api.jobPolls)
	assert.Equal(t, "SELECT order_id FROM orders", api.lastSQL)
	assert.Equal(t, 100, api.lastLimit)
	assert.Equal(t, 2, result.Len())
	assert.Equal(t, []string{"order_id"}, result.Columns())
}

func TestExecute_SynchronousResponse(t *testing.T) {
	api := &fakeAPI{
		submission: transport.SQLSubmission{Rows: []domain.Row{{"n": 1}}},
	}
	r := newTestRunner(t, api, Options{})

	result, err := r.Execute(context.Background(), "SELECT 1 AS n", 0)
	require.NoError(t, err)

	assert.Zero(t, api.jobPolls, "synchronous rows skip the poll loop")
	assert.Equal(t, DefaultLimit, api.lastLimit, "non-positive limits fall back to the default")
	assert.Equal(t, 1, result.Len())
	assert.Equal(t, []string{"n"}, result.Columns())
}

func TestExecute_JobError(t *testing.T) {
	api := &fakeAPI{
		submission: transport.SQLSubmission{JobID: "job-bad"},
		jobs: []transport.SQLJobResult{
			{Status: transport.SQLJobError, Error: "syntax error at or near SELEC"},
		},
	}
	r := newTestRunner(t, api, Options{})

	_, err := r.Execute(context.Background(), "SELEC 1", 10)

	var queryErr *domain.QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, "job-bad", queryErr.QueryUUID)
	assert.Contains(t, queryErr.Message, "syntax error")
}

func TestExecute_Timeout(t *testing.T) {
	api := &fakeAPI{
		submission: transport.SQLSubmission{JobID: "job-slow"},
		jobs:       []transport.SQLJobResult{{Status: transport.SQLJobStarted}},
	}
	interval := 100 * time.Millisecond
	r := newTestRunner(t, api, Options{PollInterval: interval, Timeout: 3 * interval})

	_, err := r.Execute(context.Background(), "SELECT pg_sleep(3600)", 10)

	var timeoutErr *domain.QueryTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "job-slow", timeoutErr.QueryUUID)
	assert.Equal(t, 3*interval, timeoutErr.Budget)
}

func TestExecute_CompletedWithoutResultsFile(t *testing.T) {
	api := &fakeAPI{
		submission: transport.SQLSubmission{JobID: "job-empty"},
		jobs: []transport.SQLJobResult{
			{Status: transport.SQLJobCompleted, Columns: []string{"order_id"}},
		},
	}
	r := newTestRunner(t, api, Options{})

	result, err := r.Execute(context.Background(), "SELECT order_id FROM orders WHERE false", 10)
	require.NoError(t, err)
	assert.Zero(t, result.Len())
	assert.Equal(t, []string{"order_id"}, result.Columns())
}

type recordingFrame struct {
	columns []string
	rows    []domain.Row
}

func (r *recordingFrame) WriteFrame(columns []string, rows []domain.Row) error {
	r.columns = columns
	r.rows = append(r.rows, rows...)
	return nil
}

func TestResult_Accessors(t *testing.T) {
	result := newResult([]domain.Row{{"b": 2, "a": 1}}, nil)

	assert.Equal(t, []string{"a", "b"}, result.Columns(), "derived columns are sorted")

	got, err := result.JSONString()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"a":1,"b":2}]`, got)

	var seen int
	require.NoError(t, result.Each(func(domain.Row) error { seen++; return nil }))
	assert.Equal(t, 1, seen)

	frame := &recordingFrame{}
	require.NoError(t, result.WriteTo(frame))
	assert.Equal(t, []string{"a", "b"}, frame.columns)
	assert.Len(t, frame.rows, 1)
}

func TestResult_EmptyJSON(t *testing.T) {
	result := newResult(nil, nil)
	got, err := result.JSONString()
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
}
