package filter

import (
	"fmt"

	"lightdash-go/domain"
)

// Wire returns the generic wire form of a node: leaves serialize to
// {"target": {"fieldId": ...}, "operator": ..., "values": [...]} and
// groups to {"and": [...]} or {"or": [...]}. The operator vocabulary
// and key casing are the API's contract and must not be changed.
func Wire(n Node) map[string]any {
	switch t := n.(type) {
	case *Condition:
		values := t.Values
		if values == nil {
			values = []any{}
		}
		return map[string]any{
			"target":   map[string]any{"fieldId": t.Field.FieldID()},
			"operator": string(t.Operator),
			"values":   values,
		}
	case *Group:
		children := make([]any, 0, len(t.Children))
		for _, c := range t.Children {
			children = append(children, Wire(c))
		}
		return map[string]any{string(t.Op): children}
	default:
		return nil
	}
}

// Envelope returns the top-level "filters" object for a query payload:
// leaves split into "dimensions" and "metrics" buckets by target field
// kind, each bucket keeping the combinator structure of the original
// tree. A nil node produces the empty envelope the API expects.
func Envelope(n Node) map[string]any {
	out := map[string]any{}
	if dims := prune(n, domain.KindMetric); dims != nil {
		out["dimensions"] = Wire(asGroup(dims))
	} else {
		out["dimensions"] = map[string]any{"and": []any{}}
	}
	if mets := prune(n, domain.KindDimension); mets != nil {
		out["metrics"] = Wire(asGroup(mets))
	}
	return out
}

// prune returns a copy of the tree with leaves of the given kind
// removed, dropping groups left empty. Leaves with no declared kind
// count as dimensions, matching the original client behavior.
func prune(n Node, drop domain.FieldKind) Node {
	switch t := n.(type) {
	case nil:
		return nil
	case *Condition:
		kind := t.Field.Kind
		if kind == "" {
			kind = domain.KindDimension
		}
		if kind == drop {
			return nil
		}
		return t
	case *Group:
		kept := make([]Node, 0, len(t.Children))
		for _, c := range t.Children {
			if p := prune(c, drop); p != nil {
				kept = append(kept, p)
			}
		}
		switch len(kept) {
		case 0:
			return nil
		case 1:
			return kept[0]
		}
		return &Group{Op: t.Op, Children: kept}
	default:
		return nil
	}
}

// asGroup wraps a bare condition in an AND group so every bucket
// serializes as {"and"|"or": [...]}.
func asGroup(n Node) Node {
	if g, ok := n.(*Group); ok {
		return g
	}
	return &Group{Op: CombineAnd, Children: []Node{n}}
}

// Parse reconstructs a node from its generic wire form. Parsed leaves
// carry only the combined field id (no model, kind, or type metadata),
// so no operator validation is re-run.
func Parse(wire map[string]any) (Node, error) {
	if children, ok := wire["and"]; ok {
		return parseGroup(CombineAnd, children)
	}
	if children, ok := wire["or"]; ok {
		return parseGroup(CombineOr, children)
	}

	target, ok := wire["target"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("filter wire form missing target")
	}
	fieldID, ok := target["fieldId"].(string)
	if !ok {
		return nil, fmt.Errorf("filter wire form missing target.fieldId")
	}
	op, ok := wire["operator"].(string)
	if !ok {
		return nil, fmt.Errorf("filter wire form missing operator")
	}
	var values []any
	switch v := wire["values"].(type) {
	case nil:
		values = []any{}
	case []any:
		values = v
	default:
		return nil, fmt.Errorf("filter values must be an array, got %T", v)
	}

	return &Condition{
		Field:    domain.Field{Name: fieldID},
		Operator: Operator(op),
		Values:   values,
	}, nil
}

func parseGroup(op Combinator, raw any) (Node, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s filter must hold an array, got %T", op, raw)
	}
	children := make([]Node, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("filter child must be an object, got %T", item)
		}
		child, err := Parse(m)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &Group{Op: op, Children: children}, nil
}
