// Package filter builds immutable boolean filter expressions and
// serializes them to the Lightdash wire format.
//
// Leaf conditions target a single dimension or metric; And/Or combine
// any nodes into groups. Combining never mutates the operands — every
// combination allocates a new node, so partial expressions can be
// shared and reused freely.
package filter

import (
	"time"

	"lightdash-go/domain"
)

// Operator is a wire-format filter operator.
type Operator string

// Filter operators, named as the API expects them.
const (
	OpIsNull       Operator = "isNull"
	OpNotNull      Operator = "notNull"
	OpEquals       Operator = "equals"
	OpNotEquals    Operator = "notEquals"
	OpLessThan     Operator = "lessThan"
	OpGreaterThan  Operator = "greaterThan"
	OpStartsWith   Operator = "startsWith"
	OpEndsWith     Operator = "endsWith"
	OpInclude      Operator = "include"
	OpInTheLast    Operator = "inTheLast"
	OpInTheNext    Operator = "inTheNext"
	OpInTheCurrent Operator = "inTheCurrent"
	OpIsBefore     Operator = "isBefore"
	OpIsAfter      Operator = "isAfter"
	OpInBetween    Operator = "inBetween"
)

// allowedOperators maps each field type to the operators the API
// accepts for it. Timestamps share the date operator set.
var allowedOperators = map[domain.FieldType]map[Operator]bool{
	domain.TypeNumber: {
		OpIsNull: true, OpNotNull: true, OpEquals: true, OpNotEquals: true,
		OpLessThan: true, OpGreaterThan: true,
	},
	domain.TypeString: {
		OpIsNull: true, OpNotNull: true, OpEquals: true, OpNotEquals: true,
		OpStartsWith: true, OpEndsWith: true, OpInclude: true,
	},
	domain.TypeBoolean: {
		OpIsNull: true, OpNotNull: true, OpEquals: true,
	},
	domain.TypeDate: {
		OpIsNull: true, OpNotNull: true, OpEquals: true, OpNotEquals: true,
		OpInTheLast: true, OpInTheNext: true, OpInTheCurrent: true,
		OpIsBefore: true, OpIsAfter: true, OpInBetween: true,
	},
}

func init() {
	allowedOperators[domain.TypeTimestamp] = allowedOperators[domain.TypeDate]
}

// Node is one node of a filter expression tree. Implementations are
// immutable: And and Or return new nodes and leave both operands
// untouched.
type Node interface {
	// And combines this node with another using AND.
	And(other Node) Node
	// Or combines this node with another using OR.
	Or(other Node) Node

	isNode()
}

// Condition is a leaf filter on a single field. Multiple values on an
// equality operator express set membership.
type Condition struct {
	Field    domain.Field
	Operator Operator
	Values   []any
}

func (c *Condition) isNode() {}

// And combines the condition with another node using AND.
func (c *Condition) And(other Node) Node { return And(c, other) }

// Or combines the condition with another node using OR.
func (c *Condition) Or(other Node) Node { return Or(c, other) }

// Group is an AND/OR combination of child nodes.
type Group struct {
	Op       Combinator
	Children []Node
}

// Combinator is the boolean connective of a Group.
type Combinator string

// Group combinators.
const (
	CombineAnd Combinator = "and"
	CombineOr  Combinator = "or"
)

func (g *Group) isNode() {}

// And combines the group with another node using AND.
func (g *Group) And(other Node) Node { return And(g, other) }

// Or combines the group with another node using OR.
func (g *Group) Or(other Node) Node { return Or(g, other) }

// New creates a leaf condition, validating the operator against the
// field's declared type. An unknown field type accepts any operator so
// that parsed or hand-built field refs without metadata still work.
func New(field domain.Field, op Operator, values ...any) (*Condition, error) {
	if allowed, ok := allowedOperators[field.Type]; ok && !allowed[op] {
		return nil, &domain.UnsupportedOperatorError{Operator: string(op), FieldType: field.Type}
	}
	vals := make([]any, len(values))
	copy(vals, values)
	return &Condition{Field: field, Operator: op, Values: vals}, nil
}

// Equals filters rows where the field equals any of the given values.
func Equals(field domain.Field, values ...any) (*Condition, error) {
	return New(field, OpEquals, values...)
}

// NotEquals filters rows where the field equals none of the given values.
func NotEquals(field domain.Field, values ...any) (*Condition, error) {
	return New(field, OpNotEquals, values...)
}

// In is set membership, an alias for Equals with multiple values.
func In(field domain.Field, values ...any) (*Condition, error) {
	return New(field, OpEquals, values...)
}

// NotIn excludes the given values, an alias for NotEquals.
func NotIn(field domain.Field, values ...any) (*Condition, error) {
	return New(field, OpNotEquals, values...)
}

// LessThan filters numeric fields below the value.
func LessThan(field domain.Field, value any) (*Condition, error) {
	return New(field, OpLessThan, value)
}

// GreaterThan filters numeric fields above the value.
func GreaterThan(field domain.Field, value any) (*Condition, error) {
	return New(field, OpGreaterThan, value)
}

// StartsWith filters string fields by prefix.
func StartsWith(field domain.Field, value string) (*Condition, error) {
	return New(field, OpStartsWith, value)
}

// EndsWith filters string fields by suffix.
func EndsWith(field domain.Field, value string) (*Condition, error) {
	return New(field, OpEndsWith, value)
}

// Includes filters string fields by substring.
func Includes(field domain.Field, value string) (*Condition, error) {
	return New(field, OpInclude, value)
}

// IsNull filters rows where the field is null.
func IsNull(field domain.Field) (*Condition, error) {
	return New(field, OpIsNull)
}

// IsNotNull filters rows where the field is not null.
func IsNotNull(field domain.Field) (*Condition, error) {
	return New(field, OpNotNull)
}

// InTheLast filters date fields to the trailing n units, e.g. (7, "days").
func InTheLast(field domain.Field, n int, unit string) (*Condition, error) {
	return New(field, OpInTheLast, n, unit)
}

// InTheNext filters date fields to the coming n units.
func InTheNext(field domain.Field, n int, unit string) (*Condition, error) {
	return New(field, OpInTheNext, n, unit)
}

// InTheCurrent filters date fields to the current unit, e.g. "month".
func InTheCurrent(field domain.Field, unit string) (*Condition, error) {
	return New(field, OpInTheCurrent, unit)
}

// IsBefore filters date fields strictly before the instant.
func IsBefore(field domain.Field, t time.Time) (*Condition, error) {
	return New(field, OpIsBefore, t.Format(time.RFC3339))
}

// IsAfter filters date fields strictly after the instant.
func IsAfter(field domain.Field, t time.Time) (*Condition, error) {
	return New(field, OpIsAfter, t.Format(time.RFC3339))
}

// Between filters date fields to the inclusive range [from, to].
func Between(field domain.Field, from, to time.Time) (*Condition, error) {
	return New(field, OpInBetween, from.Format(time.RFC3339), to.Format(time.RFC3339))
}

// And combines nodes into an AND group. Child AND groups are flattened
// into the new group's child list; the operands are never modified.
func And(nodes ...Node) Node {
	return combine(CombineAnd, nodes)
}

// Or combines nodes into an OR group, flattening child OR groups.
func Or(nodes ...Node) Node {
	return combine(CombineOr, nodes)
}

func combine(op Combinator, nodes []Node) Node {
	children := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if g, ok := n.(*Group); ok && g.Op == op {
			children = append(children, g.Children...)
			continue
		}
		children = append(children, n)
	}
	if len(children) == 1 {
		return children[0]
	}
	return &Group{Op: op, Children: children}
}
