package lightdash

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightdash-go/domain"
	"lightdash-go/filter"
	"lightdash-go/internal/fakeserver"
)

const (
	testProject = "2b6df290-2dbb-478d-8b7d-e12e1c7a4a2f"
	testToken   = "pat-test"
)

func newTestClient(t *testing.T, fake *fakeserver.Server) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.Router())
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		InstanceURL:  srv.URL,
		AccessToken:  testToken,
		ProjectUUID:  testProject,
		PollInterval: time.Millisecond,
		Timeout:      time.Second,
	})
	require.NoError(t, err)
	return client
}

func seededServer() *fakeserver.Server {
	fake := fakeserver.New(testProject, testToken)
	fake.AddExplore(fakeserver.Explore{
		Name:  "orders",
		Label: "Orders",
		Dimensions: []fakeserver.Field{
			{Name: "country", Label: "Country", Type: "string"},
		},
		Metrics: []fakeserver.Field{
			{Name: "revenue", Label: "Revenue", Type: "sum"},
		},
	})
	fake.SetResults("orders",
		map[string]fakeserver.Field{
			"orders_country": {Name: "country", Label: "Country", Type: "string"},
			"orders_revenue": {Name: "revenue", Label: "Revenue", Type: "number"},
		},
		[]map[string]any{
			{"orders_country": "USA", "orders_revenue": 100},
			{"orders_country": "UK", "orders_revenue": 200},
		},
	)
	return fake
}

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"missing instance URL", Config{AccessToken: "t", ProjectUUID: "p"}},
		{"missing access token", Config{InstanceURL: "https://x", ProjectUUID: "p"}},
		{"missing project UUID", Config{InstanceURL: "https://x", AccessToken: "t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.config)
			var vErr *domain.ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvInstanceURL, "https://app.lightdash.cloud")
	t.Setenv(EnvAccessToken, "pat-env")
	t.Setenv(EnvProjectUUID, "proj-env")

	config := ConfigFromEnv()
	assert.Equal(t, "https://app.lightdash.cloud", config.InstanceURL)
	assert.Equal(t, "pat-env", config.AccessToken)
	assert.Equal(t, "proj-env", config.ProjectUUID)
}

func TestClient_ModelLookupAndQuery(t *testing.T) {
	fake := seededServer()
	fake.PendingPolls = 2
	client := newTestClient(t, fake)
	ctx := context.Background()

	orders, err := client.Model(ctx, "orders")
	require.NoError(t, err)

	revenue, err := orders.Metric(ctx, "revenue")
	require.NoError(t, err)
	country, err := orders.Dimension(ctx, "country")
	require.NoError(t, err)

	usa, err := filter.Equals(country, "USA")
	require.NoError(t, err)

	rs, err := client.Run(ctx, orders.Query().
		Metrics(revenue).
		Dimensions(country).
		Filter(usa).
		Limit(100))
	require.NoError(t, err)

	assert.Equal(t, 2, rs.Len())
	records, err := rs.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, "USA", records[0]["Country"])
	assert.Equal(t, float64(100), records[0]["Revenue"])

	payload := fake.LastPayload()
	require.NotNil(t, payload)
	assert.Equal(t, "orders", payload["exploreName"])
	filters := payload["filters"].(map[string]any)
	assert.Contains(t, filters, "dimensions")
}

func TestClient_ModelNotFound(t *testing.T) {
	client := newTestClient(t, seededServer())

	_, err := client.Model(context.Background(), "ordres")

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Suggestions, "orders")
}

func TestClient_QueryError(t *testing.T) {
	fake := seededServer()
	fake.QueryError = "relation does not exist"
	client := newTestClient(t, fake)

	_, err := client.Run(context.Background(), client.Query("orders"))

	var queryErr *domain.QueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, "relation does not exist", queryErr.Message)
}

func TestClient_QueryTimeoutCancels(t *testing.T) {
	fake := seededServer()
	fake.PendingPolls = 1 << 30
	srv := httptest.NewServer(fake.Router())
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		InstanceURL:  srv.URL,
		AccessToken:  testToken,
		ProjectUUID:  testProject,
		PollInterval: time.Millisecond,
		Timeout:      10 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.Run(context.Background(), client.Query("orders"))

	var timeoutErr *domain.QueryTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Eventually(t, func() bool { return fake.CancelCount() == 1 },
		time.Second, 5*time.Millisecond, "timeout triggers one best-effort cancel")
}

func TestClient_SQL(t *testing.T) {
	fake := seededServer()
	fake.SetSQLRows([]map[string]any{{"n": 1}, {"n": 2}})
	client := newTestClient(t, fake)

	result, err := client.SQL(context.Background(), "SELECT n FROM numbers", 10)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Len())
	assert.Equal(t, []string{"n"}, result.Columns())
}
