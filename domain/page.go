package domain

// Row is a single result row keyed by field label (or field id when the
// server reports no label).
type Row map[string]any

// ResultPage is one bounded slice of a completed query's row set.
type ResultPage struct {
	PageNumber int
	Rows       []Row
	RowCount   int
}

// FieldInfo is the per-field metadata returned with query results.
type FieldInfo struct {
	Name  string
	Label string
	Type  FieldType
}

// Fields maps field ids to their result metadata.
type Fields map[string]FieldInfo

// Label returns the display label for a field id, falling back to the
// field name and finally the id itself.
func (f Fields) Label(fieldID string) string {
	info, ok := f[fieldID]
	if !ok {
		return fieldID
	}
	if info.Label != "" {
		return info.Label
	}
	if info.Name != "" {
		return info.Name
	}
	return fieldID
}

// QueryStatus is the server-reported state of an asynchronous query.
type QueryStatus string

// Server query statuses.
const (
	StatusPending   QueryStatus = "pending"
	StatusReady     QueryStatus = "ready"
	StatusError     QueryStatus = "error"
	StatusCancelled QueryStatus = "cancelled"
)

// StatusResponse is the result of one status poll. Page and result
// metadata are populated only when Status is ready; ErrorMessage only
// when Status is error.
type StatusResponse struct {
	Status       QueryStatus
	Page         *ResultPage
	TotalResults int
	TotalPages   int
	Fields       Fields
	ErrorMessage string
}
