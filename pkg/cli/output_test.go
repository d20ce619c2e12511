package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lightdash-go/domain"
)

func TestPrintTable_Basic(t *testing.T) {
	var buf bytes.Buffer

	PrintTable(&buf, []string{"name", "revenue"}, [][]string{
		{"orders", "100"},
		{"payments", "200"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3, "header plus two data rows")
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[0], "REVENUE")
	assert.Contains(t, lines[1], "orders")
	assert.Contains(t, lines[2], "200")
}

func TestPrintTable_EmptyColumns(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, nil, [][]string{{"a"}})
	assert.Empty(t, buf.String())
}

func TestPrintTable_EmptyRows(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, []string{"id"}, nil)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "ID")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, map[string]any{"rows": 2}))
	assert.JSONEq(t, `{"rows": 2}`, buf.String())
}

func TestRowCells(t *testing.T) {
	rows := []domain.Row{
		{"Country": "USA", "Revenue": 100},
		{"Country": "UK"},
	}

	cells := rowCells([]string{"Country", "Revenue"}, rows)

	assert.Equal(t, [][]string{
		{"USA", "100"},
		{"UK", ""},
	}, cells)
}
