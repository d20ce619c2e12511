// Package domain defines core types and errors shared across the SDK.
package domain

// FieldKind distinguishes dimensions from metrics.
type FieldKind string

// Field kinds.
const (
	KindDimension FieldKind = "dimension"
	KindMetric    FieldKind = "metric"
)

// FieldType is the declared data type of a dimension or metric.
type FieldType string

// Field data types as reported by the explore metadata endpoint.
const (
	TypeString    FieldType = "string"
	TypeNumber    FieldType = "number"
	TypeBoolean   FieldType = "boolean"
	TypeDate      FieldType = "date"
	TypeTimestamp FieldType = "timestamp"
)

// Field references a dimension or metric by name and parent model.
// It carries no live handle to the metadata cache, so filters and
// queries can be built before any metadata has been fetched.
type Field struct {
	Name        string
	ModelName   string
	Label       string
	Description string
	Kind        FieldKind
	Type        FieldType
}

// FieldID returns the wire identifier for the field, "{model}_{name}".
// A field parsed back from the wire carries only the combined id in
// Name, in which case FieldID returns it unchanged.
func (f Field) FieldID() string {
	if f.ModelName == "" {
		return f.Name
	}
	return f.ModelName + "_" + f.Name
}

// Asc returns an ascending sort on the field.
func (f Field) Asc() Sort {
	return Sort{FieldID: f.FieldID()}
}

// Desc returns a descending sort on the field.
func (f Field) Desc() Sort {
	return Sort{FieldID: f.FieldID(), Descending: true}
}
