package domain

// Sort orders query results by a single field.
type Sort struct {
	FieldID    string
	Descending bool
	NullsFirst *bool // nil means warehouse default
}

// NullsFirstSort returns a copy of the sort with nulls-first handling set.
func (s Sort) NullsFirstSort(nullsFirst bool) Sort {
	s.NullsFirst = &nullsFirst
	return s
}

// Wire returns the request representation of the sort.
func (s Sort) Wire() map[string]any {
	out := map[string]any{
		"fieldId":    s.FieldID,
		"descending": s.Descending,
	}
	if s.NullsFirst != nil {
		out["nullsFirst"] = *s.NullsFirst
	}
	return out
}
