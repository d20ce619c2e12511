// Package render builds HTML previews of models, fields, and result
// sets for notebook-style frontends.
package render

import (
	"fmt"
	"strings"

	. "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"lightdash-go/domain"
)

const (
	fieldPreviewCount = 5
	rowPreviewCount   = 10
	descriptionLimit  = 150
)

// HTML renders a node to a string.
func HTML(n Node) (string, error) {
	var sb strings.Builder
	if err := n.Render(&sb); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return sb.String(), nil
}

// ModelCard previews one model with its metric and dimension lists.
func ModelCard(name, label, description string, metrics, dimensions []domain.Field) Node {
	display := label
	if display == "" {
		display = name
	}
	children := []Node{
		h.Class("ld-model-card"),
		h.Div(h.Class("ld-model-title"), Text("Model: "+display)),
	}
	if description != "" {
		children = append(children, h.Div(h.Class("ld-model-description"), Text(truncate(description, descriptionLimit))))
	}
	children = append(children, h.Div(
		h.Class("ld-field-columns"),
		fieldColumn("Metrics", metrics),
		fieldColumn("Dimensions", dimensions),
	))
	return h.Div(children...)
}

func fieldColumn(title string, fields []domain.Field) Node {
	total := len(fields)
	preview := fields
	if len(preview) > fieldPreviewCount {
		preview = preview[:fieldPreviewCount]
	}

	items := make([]Node, 0, len(preview)+1)
	for _, f := range preview {
		display := f.Label
		if display == "" {
			display = f.Name
		}
		items = append(items, h.Div(h.Class("ld-field-item"), Text(display)))
	}
	if total > fieldPreviewCount {
		items = append(items, h.Div(h.Class("ld-field-more"), Text(fmt.Sprintf("...and %d more", total-fieldPreviewCount))))
	}
	if len(items) == 0 {
		items = append(items, h.Div(h.Class("ld-field-empty"), Text("None")))
	}

	return h.Div(
		h.Class("ld-field-column"),
		h.Div(h.Class("ld-field-column-title"), Text(fmt.Sprintf("%s (%d)", title, total))),
		Group(items),
	)
}

// FieldCard previews one dimension or metric.
func FieldCard(f domain.Field) Node {
	display := f.Label
	if display == "" {
		display = f.Name
	}
	kind := "Dimension"
	if f.Kind == domain.KindMetric {
		kind = "Metric"
	}

	children := []Node{
		h.Class("ld-field-card"),
		h.Div(h.Class("ld-field-title"), Text(display)),
		h.Div(
			h.Class("ld-field-meta"),
			h.Span(Text("Type: "+kind)),
			h.Span(Text("Model: "+f.ModelName)),
		),
		h.Div(h.Class("ld-field-id"), Text(f.FieldID())),
	}
	if f.Description != "" {
		children = append(children, h.Div(h.Class("ld-field-description"), Text(truncate(f.Description, descriptionLimit))))
	}
	return h.Div(children...)
}

// ResultTable previews the first rows of a result set.
func ResultTable(columns []string, rows []domain.Row, totalResults int) Node {
	preview := rows
	if len(preview) > rowPreviewCount {
		preview = preview[:rowPreviewCount]
	}

	headers := make([]Node, len(columns))
	for i, col := range columns {
		headers[i] = h.Th(Text(col))
	}

	bodyRows := make([]Node, 0, len(preview)+1)
	for _, row := range preview {
		cells := make([]Node, len(columns))
		for i, col := range columns {
			cells[i] = h.Td(Text(cellText(row[col])))
		}
		bodyRows = append(bodyRows, h.Tr(cells...))
	}
	if totalResults > len(preview) {
		bodyRows = append(bodyRows, h.Tr(h.Td(
			h.ColSpan(fmt.Sprintf("%d", len(columns))),
			h.Class("ld-row-more"),
			Text(fmt.Sprintf("...and %d more rows", totalResults-len(preview))),
		)))
	}

	return h.Div(
		h.Class("ld-result-table"),
		h.Table(
			h.THead(h.Tr(headers...)),
			h.TBody(Group(bodyRows)),
		),
		h.Div(h.Class("ld-result-count"), Text(fmt.Sprintf("%d rows", totalResults))),
	)
}

func cellText(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
