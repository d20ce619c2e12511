package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLJobLifecycle(t *testing.T) {
	fake := seededServer()
	fake.SQLPendingPolls = 1
	fake.SetSQLRows([]map[string]any{
		{"order_id": 1, "total": 10.5},
		{"order_id": 2, "total": 20.0},
	})
	c := newTestClient(t, fake)
	ctx := context.Background()

	submission, err := c.RunSQL(ctx, "SELECT * FROM orders", 500)
	require.NoError(t, err)
	require.NotEmpty(t, submission.JobID)
	assert.Empty(t, submission.Rows)

	job, err := c.SQLJob(ctx, submission.JobID)
	require.NoError(t, err)
	assert.Equal(t, SQLJobStarted, job.Status)

	job, err = c.SQLJob(ctx, submission.JobID)
	require.NoError(t, err)
	assert.Equal(t, SQLJobCompleted, job.Status)
	assert.NotEmpty(t, job.ResultsURL)
	assert.ElementsMatch(t, []string{"order_id", "total"}, job.Columns)

	rows, err := c.FetchSQLResults(ctx, job.ResultsURL)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, float64(1), rows[0]["order_id"])
	assert.Equal(t, 20.0, rows[1]["total"])
}

func TestSQLJob_Unknown(t *testing.T) {
	c := newTestClient(t, seededServer())

	_, err := c.SQLJob(context.Background(), "no-such-job")
	require.Error(t, err)
}

func TestFetchSQLResults_EmptyBody(t *testing.T) {
	fake := seededServer()
	fake.SetSQLRows(nil)
	c := newTestClient(t, fake)
	ctx := context.Background()

	submission, err := c.RunSQL(ctx, "SELECT 1 WHERE false", 10)
	require.NoError(t, err)

	job, err := c.SQLJob(ctx, submission.JobID)
	require.NoError(t, err)
	require.Equal(t, SQLJobCompleted, job.Status)

	rows, err := c.FetchSQLResults(ctx, job.ResultsURL)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
