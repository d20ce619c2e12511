package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldID(t *testing.T) {
	f := Field{Name: "revenue", ModelName: "orders"}
	assert.Equal(t, "orders_revenue", f.FieldID())

	parsed := Field{Name: "orders_revenue"}
	assert.Equal(t, "orders_revenue", parsed.FieldID(), "parsed refs carry the combined id in Name")
}

func TestFieldSortHelpers(t *testing.T) {
	f := Field{Name: "created_at", ModelName: "orders"}

	asc := f.Asc()
	assert.Equal(t, "orders_created_at", asc.FieldID)
	assert.False(t, asc.Descending)

	desc := f.Desc()
	assert.True(t, desc.Descending)
}

func TestSortWire(t *testing.T) {
	s := Sort{FieldID: "orders_revenue", Descending: true}
	assert.Equal(t, map[string]any{"fieldId": "orders_revenue", "descending": true}, s.Wire())

	nf := s.NullsFirstSort(false)
	wire := nf.Wire()
	assert.Equal(t, false, wire["nullsFirst"], "explicit nulls placement is carried even when false")
	assert.NotContains(t, s.Wire(), "nullsFirst", "the receiver is unchanged")
}

func TestFieldsLabelFallback(t *testing.T) {
	fields := Fields{
		"orders_revenue": {Name: "revenue", Label: "Revenue"},
		"orders_country": {Name: "country"},
	}

	assert.Equal(t, "Revenue", fields.Label("orders_revenue"))
	assert.Equal(t, "country", fields.Label("orders_country"))
	assert.Equal(t, "orders_unknown", fields.Label("orders_unknown"))
}
