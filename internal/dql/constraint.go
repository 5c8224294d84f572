/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Constraint expressions.

A WHERE clause parses into a tree of constraint nodes. Each node
advertises which fields it could serve as an index hash key or range
key; the planner intersects those candidates with the table's indexes.
Only an equality test against a concrete value qualifies a hash key.
Any comparison except "<>" qualifies a range key, as do BETWEEN and
begins_with. OR conjunctions advertise nothing: an OR can never be
answered by one key condition, so it always executes as a filter.

Once an index is chosen, RemoveIndex splits an AND conjunction into the
key condition the index serves and the remaining filter.
*/

package dql

import (
	"strings"
)

// Comparison operators, normalized. "!=" is spelled "<>" everywhere
// past the lexer.
const (
	OpEQ = "="
	OpNE = "<>"
	OpLT = "<"
	OpLE = "<="
	OpGT = ">"
	OpGE = ">="
)

// normalizeOperator maps both not-equal spellings onto "<>".
func normalizeOperator(op string) string {
	if op == "!=" {
		return OpNE
	}
	return op
}

// ConstraintExpression is a node of a WHERE or FILTER tree.
type ConstraintExpression interface {
	// Build renders the node through a visitor.
	Build(v Visitor) string
	// PossibleHashFields lists fields this node can serve as an index
	// hash key.
	PossibleHashFields() []string
	// PossibleRangeFields lists fields this node can serve as an index
	// range key.
	PossibleRangeFields() []string
}

// String renders a constraint as reparsable DQL text.
func ConstraintString(c ConstraintExpression) string {
	if c == nil {
		return ""
	}
	return c.Build(DummyVisitor{})
}

// FieldReference marks a comparison operand that names another
// attribute rather than a literal: "WHERE low_score < high_score".
type FieldReference struct {
	Name string
}

// buildOperand renders a comparison operand, which is either a value
// or a reference to another field.
func buildOperand(v Visitor, operand interface{}) string {
	if f, ok := operand.(FieldReference); ok {
		return v.GetField(f.Name)
	}
	return v.GetValue(operand)
}

// OperatorConstraint is a comparison of a field against a value or
// another field: "field op operand".
type OperatorConstraint struct {
	Field    string
	Operator string
	Value    interface{}
}

// NewOperatorConstraint creates a comparison constraint, normalizing
// the operator.
func NewOperatorConstraint(field, op string, value interface{}) *OperatorConstraint {
	return &OperatorConstraint{Field: field, Operator: normalizeOperator(op), Value: value}
}

func (c *OperatorConstraint) Build(v Visitor) string {
	return v.GetField(c.Field) + " " + c.Operator + " " + buildOperand(v, c.Value)
}

// A comparison against another field can never be a key condition:
// keys match concrete values only.

func (c *OperatorConstraint) PossibleHashFields() []string {
	if _, ok := c.Value.(FieldReference); ok {
		return nil
	}
	if c.Operator == OpEQ {
		return []string{c.Field}
	}
	return nil
}

func (c *OperatorConstraint) PossibleRangeFields() []string {
	if _, ok := c.Value.(FieldReference); ok {
		return nil
	}
	if c.Operator == OpNE {
		return nil
	}
	return []string{c.Field}
}

// FunctionConstraint is a predicate function call: attribute_exists,
// attribute_not_exists, begins_with, contains or attribute_type.
// Operand is unused for the two existence checks.
type FunctionConstraint struct {
	Name       string
	Field      string
	Operand    interface{}
	HasOperand bool
}

func NewFunctionConstraint(name, field string) *FunctionConstraint {
	return &FunctionConstraint{Name: name, Field: field}
}

func NewFunctionConstraint2(name, field string, operand interface{}) *FunctionConstraint {
	return &FunctionConstraint{Name: name, Field: field, Operand: operand, HasOperand: true}
}

func (c *FunctionConstraint) Build(v Visitor) string {
	if c.HasOperand {
		return c.Name + "(" + v.GetField(c.Field) + ", " + v.GetValue(c.Operand) + ")"
	}
	return c.Name + "(" + v.GetField(c.Field) + ")"
}

func (c *FunctionConstraint) PossibleHashFields() []string { return nil }

func (c *FunctionConstraint) PossibleRangeFields() []string {
	if c.Name == "begins_with" {
		return []string{c.Field}
	}
	return nil
}

// SizeConstraint compares the size of an attribute:
// "size(field) op value". Size never qualifies as a key condition.
type SizeConstraint struct {
	Field    string
	Operator string
	Value    interface{}
}

func NewSizeConstraint(field, op string, value interface{}) *SizeConstraint {
	return &SizeConstraint{Field: field, Operator: normalizeOperator(op), Value: value}
}

func (c *SizeConstraint) Build(v Visitor) string {
	return "size(" + v.GetField(c.Field) + ") " + c.Operator + " " + v.GetValue(c.Value)
}

func (c *SizeConstraint) PossibleHashFields() []string  { return nil }
func (c *SizeConstraint) PossibleRangeFields() []string { return nil }

// BetweenConstraint is an inclusive range test:
// "field BETWEEN low AND high".
type BetweenConstraint struct {
	Field string
	Low   interface{}
	High  interface{}
}

func NewBetweenConstraint(field string, low, high interface{}) *BetweenConstraint {
	return &BetweenConstraint{Field: field, Low: low, High: high}
}

func (c *BetweenConstraint) Build(v Visitor) string {
	return v.GetField(c.Field) + " BETWEEN " + v.GetValue(c.Low) + " AND " + v.GetValue(c.High)
}

func (c *BetweenConstraint) PossibleHashFields() []string  { return nil }
func (c *BetweenConstraint) PossibleRangeFields() []string { return []string{c.Field} }

// InConstraint is a membership test: "field IN (v1, v2)". IN cannot be
// part of a key condition.
type InConstraint struct {
	Field  string
	Values []interface{}
}

func NewInConstraint(field string, values []interface{}) *InConstraint {
	return &InConstraint{Field: field, Values: values}
}

func (c *InConstraint) Build(v Visitor) string {
	parts := make([]string, len(c.Values))
	for i, e := range c.Values {
		parts[i] = v.GetValue(e)
	}
	return v.GetField(c.Field) + " IN (" + strings.Join(parts, ", ") + ")"
}

func (c *InConstraint) PossibleHashFields() []string  { return nil }
func (c *InConstraint) PossibleRangeFields() []string { return nil }

// Invert negates a constraint: "NOT child". A negated constraint never
// serves a key.
type Invert struct {
	Child ConstraintExpression
}

func NewInvert(child ConstraintExpression) *Invert {
	return &Invert{Child: child}
}

func (c *Invert) Build(v Visitor) string {
	return "NOT " + c.Child.Build(v)
}

func (c *Invert) PossibleHashFields() []string  { return nil }
func (c *Invert) PossibleRangeFields() []string { return nil }

// Conjunction joins constraints with AND or OR. Construction flattens
// nested conjunctions of the same kind, so "a AND (b AND c)" holds
// three children.
type Conjunction struct {
	And    bool
	Pieces []ConstraintExpression
}

// NewConjunction creates a flattened conjunction. A single piece is not
// wrapped; it is returned as-is by And and Or.
func NewConjunction(and bool, pieces ...ConstraintExpression) *Conjunction {
	c := &Conjunction{And: and}
	for _, p := range pieces {
		if sub, ok := p.(*Conjunction); ok && sub.And == and {
			c.Pieces = append(c.Pieces, sub.Pieces...)
			continue
		}
		c.Pieces = append(c.Pieces, p)
	}
	return c
}

// And joins constraints with AND, unwrapping a single piece.
func And(pieces ...ConstraintExpression) ConstraintExpression {
	if len(pieces) == 1 {
		return pieces[0]
	}
	return NewConjunction(true, pieces...)
}

// Or joins constraints with OR, unwrapping a single piece.
func Or(pieces ...ConstraintExpression) ConstraintExpression {
	if len(pieces) == 1 {
		return pieces[0]
	}
	return NewConjunction(false, pieces...)
}

func (c *Conjunction) Build(v Visitor) string {
	sep := " OR "
	if c.And {
		sep = " AND "
	}
	parts := make([]string, len(c.Pieces))
	for i, p := range c.Pieces {
		parts[i] = p.Build(v)
	}
	return "(" + strings.Join(parts, sep) + ")"
}

func (c *Conjunction) PossibleHashFields() []string {
	if !c.And {
		return nil
	}
	var fields []string
	for _, p := range c.Pieces {
		fields = appendUnique(fields, p.PossibleHashFields()...)
	}
	return fields
}

func (c *Conjunction) PossibleRangeFields() []string {
	if !c.And {
		return nil
	}
	var fields []string
	for _, p := range c.Pieces {
		fields = appendUnique(fields, p.PossibleRangeFields()...)
	}
	return fields
}

// RemoveIndex splits the conjunction into the key condition served by
// the index and the remaining filter. The hash key takes the first
// equality constraint on it; the range key takes the first constraint
// that can serve it; everything else filters. Either side collapses to
// its single child or to nil when empty.
func (c *Conjunction) RemoveIndex(index *QueryIndex) (query, filter ConstraintExpression) {
	if !c.And {
		return nil, c
	}
	var queryParts, filterParts []ConstraintExpression
	hashUsed, rangeUsed := false, false
	for _, p := range c.Pieces {
		if !hashUsed && fieldListContains(p.PossibleHashFields(), index.HashKey) {
			queryParts = append(queryParts, p)
			hashUsed = true
			continue
		}
		if !rangeUsed && index.RangeKey != "" &&
			fieldListContains(p.PossibleRangeFields(), index.RangeKey) {
			queryParts = append(queryParts, p)
			rangeUsed = true
			continue
		}
		filterParts = append(filterParts, p)
	}
	return collapse(queryParts), collapse(filterParts)
}

// SplitForIndex dispatches RemoveIndex over the constraint tree root. A
// single comparison that is the hash condition becomes the whole key
// condition.
func SplitForIndex(c ConstraintExpression, index *QueryIndex) (query, filter ConstraintExpression) {
	switch t := c.(type) {
	case *Conjunction:
		return t.RemoveIndex(index)
	case nil:
		return nil, nil
	default:
		if fieldListContains(c.PossibleHashFields(), index.HashKey) {
			return c, nil
		}
		return nil, c
	}
}

func collapse(pieces []ConstraintExpression) ConstraintExpression {
	switch len(pieces) {
	case 0:
		return nil
	case 1:
		return pieces[0]
	}
	return NewConjunction(true, pieces...)
}

func fieldListContains(fields []string, field string) bool {
	for _, f := range fields {
		if f == field {
			return true
		}
	}
	return false
}

func appendUnique(fields []string, add ...string) []string {
	for _, f := range add {
		if !fieldListContains(fields, f) {
			fields = append(fields, f)
		}
	}
	return fields
}
