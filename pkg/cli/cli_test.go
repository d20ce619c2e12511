package cli

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lightdash "lightdash-go"
	"lightdash-go/internal/fakeserver"
)

const (
	testProject = "c09b2a3d-96b8-4cb3-b3b1-29b8e384a50d"
	testToken   = "pat-cli"
)

// startServer runs a seeded fake API and points the LIGHTDASH_* env
// vars at it. HOME is isolated so no user config leaks in.
func startServer(t *testing.T) *fakeserver.Server {
	t.Helper()
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
		},
	)
	srv := httptest.NewServer(fake.Router())
	t.Cleanup(srv.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv(lightdash.EnvInstanceURL, srv.URL)
	t.Setenv(lightdash.EnvAccessToken, testToken)
	t.Setenv(lightdash.EnvProjectUUID, testProject)
	return fake
}

func TestModelsList(t *testing.T) {
	startServer(t)

	out, err := runCommand(t, "models", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "orders")
}

func TestModelsList_JSON(t *testing.T) {
	startServer(t)

	out, err := runCommand(t, "models", "list", "-o", "json")
	require.NoError(t, err)

	var models []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &models))
	require.Len(t, models, 1)
	assert.Equal(t, "orders", models[0]["name"])
}

func TestModelsDescribe(t *testing.T) {
	startServer(t)

	out, err := runCommand(t, "models", "describe", "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "orders_country")
	assert.Contains(t, out, "orders_revenue")
	assert.Contains(t, out, "dimension")
	assert.Contains(t, out, "metric")
}

func TestModelsDescribe_UnknownModelSuggests(t *testing.T) {
	startServer(t)

	_, err := runCommand(t, "models", "describe", "ordres")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Did you mean")
}

func TestQueryRun_Flags(t *testing.T) {
	fake := startServer(t)

	out, err := runCommand(t, "query", "run",
		"--model", "orders",
		"--metrics", "revenue",
		"--dimensions", "country",
		"--limit", "50")
	require.NoError(t, err)

	assert.Contains(t, out, "USA")
	assert.Contains(t, out, "(1 rows)")

	payload := fake.LastPayload()
	require.NotNil(t, payload)
	assert.Equal(t, "orders", payload["exploreName"])
	assert.Equal(t, float64(50), payload["limit"])
}

func TestQueryRun_FiltersAndSorts(t *testing.T) {
	fake := startServer(t)

	_, err := runCommand(t, "query", "run",
		"--model", "orders",
		"--metrics", "revenue",
		"--dimensions", "country",
		"--filter", "country=USA",
		"--filter", "revenue>10",
		"--sort", "revenue:desc")
	require.NoError(t, err)

	payload := fake.LastPayload()
	require.NotNil(t, payload)

	filters, ok := payload["filters"].(map[string]any)
	require.True(t, ok)
	dims := filters["dimensions"].(map[string]any)["and"].([]any)
	require.Len(t, dims, 1)
	leaf := dims[0].(map[string]any)
	assert.Equal(t, "equals", leaf["operator"])
	assert.Equal(t, []any{"USA"}, leaf["values"])
	assert.Equal(t, "orders_country", leaf["target"].(map[string]any)["fieldId"])

	mets := filters["metrics"].(map[string]any)["and"].([]any)
	require.Len(t, mets, 1)
	assert.Equal(t, "greaterThan", mets[0].(map[string]any)["operator"])
	assert.Equal(t, []any{float64(10)}, mets[0].(map[string]any)["values"])

	sorts, ok := payload["sorts"].([]any)
	require.True(t, ok)
	require.Len(t, sorts, 1)
	assert.Equal(t, "orders_revenue", sorts[0].(map[string]any)["fieldId"])
	assert.Equal(t, true, sorts[0].(map[string]any)["descending"])
}

func TestQueryRun_BadFilterExpression(t *testing.T) {
	startServer(t)

	_, err := runCommand(t, "query", "run",
		"--model", "orders",
		"--metrics", "revenue",
		"--filter", "country")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter")
}

func TestParseFilterValue(t *testing.T) {
	assert.Equal(t, float64(42), parseFilterValue("42"))
	assert.Equal(t, true, parseFilterValue("true"))
	assert.Equal(t, "USA", parseFilterValue("USA"))
}

func TestQueryRun_NoModelOrFiles(t *testing.T) {
	startServer(t)

	_, err := runCommand(t, "query", "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--model")
}

func TestQueryRun_Files(t *testing.T) {
	startServer(t)

	dir := t.TempDir()
	spec := filepath.Join(dir, "revenue.json")
	require.NoError(t, os.WriteFile(spec, []byte(`{"model":"orders","metrics":["revenue"]}`), 0o600))

	out, err := runCommand(t, "query", "run", spec)
	require.NoError(t, err)
	assert.Contains(t, out, "revenue.json")
	assert.Contains(t, out, "(1 rows)")
}

func TestSQL(t *testing.T) {
	fake := startServer(t)
	fake.SetSQLRows([]map[string]any{{"n": 1}})

	out, err := runCommand(t, "sql", "SELECT 1 AS n")
	require.NoError(t, err)
	assert.Contains(t, out, "N")
	assert.Contains(t, out, "(1 rows)")
}

func TestOutputFormatValidation(t *testing.T) {
	startServer(t)

	_, err := runCommand(t, "models", "list", "-o", "csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestEnvPrecedence_FlagWins(t *testing.T) {
	startServer(t)
	t.Setenv(lightdash.EnvProjectUUID, "wrong-project")

	// The env project is wrong; the flag must win for the command to
	// succeed against the fake server.
	srvURL := os.Getenv(lightdash.EnvInstanceURL)
	out, err := runCommand(t, "models", "list",
		"--instance-url", srvURL,
		"--project", testProject)
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
}

func TestProfileFallback(t *testing.T) {
	startServer(t)
	srvURL := os.Getenv(lightdash.EnvInstanceURL)

	// Clear env so the profile is the only source.
	t.Setenv(lightdash.EnvInstanceURL, "")
	t.Setenv(lightdash.EnvAccessToken, "")
	t.Setenv(lightdash.EnvProjectUUID, "")

	require.NoError(t, SaveUserConfig(&UserConfig{
		CurrentProfile: "default",
		Profiles: map[string]Profile{
			"default": {
				InstanceURL: srvURL,
				AccessToken: testToken,
				ProjectUUID: testProject,
			},
		},
	}))

	out, err := runCommand(t, "models", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lightdash")
}
