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
Selection expressions.

The attribute list of a SELECT parses into selection nodes: field
paths, literals, arithmetic and the timestamp functions, each
optionally aliased with AS. Evaluation happens client-side per row.

Arithmetic tolerates missing attributes: when one operand is nil the
result is the other operand, so "SELECT views + clicks" over sparse
rows degrades gracefully instead of erroring. A genuine type error
(dividing strings) yields a per-row error value in that cell; it never
aborts the statement.
*/

package dql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"dql/internal/store"
)

// EvalError is a per-row evaluation failure, carried as the cell value.
type EvalError struct {
	Msg string
}

func (e EvalError) Error() string { return e.Msg }

// SelectionNode is one projected expression.
type SelectionNode interface {
	// Build renders the node through a visitor.
	Build(v Visitor) string
	// Fields appends the item attributes the node reads.
	Fields(fields []string) []string
	// Evaluate computes the node's value for one item.
	Evaluate(item store.Item) interface{}
}

// FieldSelection reads a document path from the item.
type FieldSelection struct {
	Path string
}

func (f *FieldSelection) Build(v Visitor) string { return v.GetField(f.Path) }

func (f *FieldSelection) Fields(fields []string) []string {
	return appendUnique(fields, rootFieldOf(f.Path))
}

func (f *FieldSelection) Evaluate(item store.Item) interface{} {
	v, _ := resolveItemPath(item, f.Path)
	return v
}

// ValueSelection is a literal in the attribute list.
type ValueSelection struct {
	Value interface{}
}

func (s *ValueSelection) Build(v Visitor) string               { return v.GetValue(s.Value) }
func (s *ValueSelection) Fields(fields []string) []string      { return fields }
func (s *ValueSelection) Evaluate(item store.Item) interface{} { return s.Value }

// ArithSelection is a binary arithmetic node.
type ArithSelection struct {
	Op    byte // '+', '-', '*', '/'
	Left  SelectionNode
	Right SelectionNode
}

func (a *ArithSelection) Build(v Visitor) string {
	return "(" + a.Left.Build(v) + " " + string(a.Op) + " " + a.Right.Build(v) + ")"
}

func (a *ArithSelection) Fields(fields []string) []string {
	return a.Right.Fields(a.Left.Fields(fields))
}

func (a *ArithSelection) Evaluate(item store.Item) interface{} {
	left := a.Left.Evaluate(item)
	right := a.Right.Evaluate(item)
	if e, ok := left.(EvalError); ok {
		return e
	}
	if e, ok := right.(EvalError); ok {
		return e
	}
	// A missing operand yields the other operand.
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	out, err := applyArith(a.Op, left, right)
	if err != nil {
		return EvalError{Msg: err.Error()}
	}
	return out
}

// NowSelection is NOW() or UTCNOW().
type NowSelection struct {
	UTC bool
}

func (n *NowSelection) Build(v Visitor) string {
	if n.UTC {
		return "UTCNOW()"
	}
	return "NOW()"
}

func (n *NowSelection) Fields(fields []string) []string { return fields }

func (n *NowSelection) Evaluate(item store.Item) interface{} {
	if n.UTC {
		return time.Now().UTC()
	}
	return time.Now()
}

// TimestampSelection is TIMESTAMP(x) or UTCTIMESTAMP(x).
type TimestampSelection struct {
	Arg SelectionNode
	UTC bool
}

func (t *TimestampSelection) Build(v Visitor) string {
	name := "TIMESTAMP"
	if t.UTC {
		name = "UTCTIMESTAMP"
	}
	return name + "(" + t.Arg.Build(v) + ")"
}

func (t *TimestampSelection) Fields(fields []string) []string { return t.Arg.Fields(fields) }

func (t *TimestampSelection) Evaluate(item store.Item) interface{} {
	arg := t.Arg.Evaluate(item)
	if e, ok := arg.(EvalError); ok {
		return e
	}
	ts, err := ParseTimestamp(arg, t.UTC)
	if err != nil {
		return EvalError{Msg: err.Error()}
	}
	return ts
}

// NamedSelection is one output column: an expression and its display
// key.
type NamedSelection struct {
	Expr  SelectionNode
	Alias string
}

// Key returns the column's output name: the alias when present,
// otherwise the expression text.
func (n NamedSelection) Key() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Expr.Build(DummyVisitor{})
}

// SelectionExpression is the full attribute list of a SELECT.
type SelectionExpression struct {
	All     bool // SELECT *
	Count   bool // SELECT COUNT(*)
	Columns []NamedSelection
}

// String renders the attribute list as reparsable DQL text.
func (s *SelectionExpression) String() string {
	if s.Count {
		return "COUNT(*)"
	}
	if s.All {
		return "*"
	}
	parts := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		parts[i] = col.Expr.Build(DummyVisitor{})
		if col.Alias != "" {
			parts[i] += " AS " + col.Alias
		}
	}
	return strings.Join(parts, ", ")
}

// Fields returns the item attributes the selection reads, in first-use
// order. Empty for SELECT * and COUNT(*).
func (s *SelectionExpression) Fields() []string {
	var fields []string
	for _, col := range s.Columns {
		fields = col.Expr.Fields(fields)
	}
	return fields
}

// Keys returns the ordered output column names for explicit attribute
// lists.
func (s *SelectionExpression) Keys() []string {
	keys := make([]string, len(s.Columns))
	for i, col := range s.Columns {
		keys[i] = col.Key()
	}
	return keys
}

// Convert evaluates the selection against one item, producing the
// output row. SELECT * returns the item unchanged.
func (s *SelectionExpression) Convert(item store.Item) store.Item {
	if s.All || s.Count {
		return item
	}
	out := make(store.Item, len(s.Columns))
	for _, col := range s.Columns {
		out[col.Key()] = col.Expr.Evaluate(item)
	}
	return out
}

// applyArith computes a binary arithmetic operation over the value
// domain: numbers, strings (+ only), timestamps and intervals.
func applyArith(op byte, left, right interface{}) (interface{}, error) {
	// Timestamp and interval arithmetic.
	if lt, ok := left.(time.Time); ok {
		if iv, ok := right.(Interval); ok {
			switch op {
			case '+':
				return iv.AddTo(lt), nil
			case '-':
				return iv.Negate().AddTo(lt), nil
			}
		}
		return nil, fmt.Errorf("cannot apply %c to timestamp and %T", op, right)
	}
	if liv, ok := left.(Interval); ok {
		switch rt := right.(type) {
		case time.Time:
			if op == '+' {
				return liv.AddTo(rt), nil
			}
		case Interval:
			switch op {
			case '+':
				return liv.Plus(rt), nil
			case '-':
				return liv.Plus(rt.Negate()), nil
			}
		}
		return nil, fmt.Errorf("cannot apply %c to interval and %T", op, right)
	}

	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if ok && op == '+' {
			return ls + rs, nil
		}
		return nil, fmt.Errorf("cannot apply %c to string and %T", op, right)
	}

	// Integer fast path; division always goes through decimal.
	if li, ok := left.(int64); ok {
		if ri, ok := right.(int64); ok && op != '/' {
			switch op {
			case '+':
				return li + ri, nil
			case '-':
				return li - ri, nil
			case '*':
				return li * ri, nil
			}
		}
	}

	ld, ok := store.ToDecimal(left)
	if !ok {
		return nil, fmt.Errorf("cannot apply %c to %T", op, left)
	}
	rd, ok := store.ToDecimal(right)
	if !ok {
		return nil, fmt.Errorf("cannot apply %c to %T and %T", op, left, right)
	}
	var out apd.Decimal
	var err error
	switch op {
	case '+':
		_, err = decCtx.Add(&out, ld, rd)
	case '-':
		_, err = decCtx.Sub(&out, ld, rd)
	case '*':
		_, err = decCtx.Mul(&out, ld, rd)
	case '/':
		_, err = decCtx.Quo(&out, ld, rd)
	default:
		return nil, fmt.Errorf("unknown operator %c", op)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// rootFieldOf returns the leading name segment of a document path.
func rootFieldOf(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' || path[i] == '[' {
			return path[:i]
		}
	}
	return path
}

// resolveItemPath walks a document path through an item.
func resolveItemPath(item store.Item, path string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(item)
	for _, seg := range splitFieldPath(path) {
		if seg.index {
			n, err := strconv.Atoi(strings.Trim(seg.text, "[]"))
			if err != nil {
				return nil, false
			}
			list, ok := cur.([]interface{})
			if !ok || n < 0 || n >= len(list) {
				return nil, false
			}
			cur = list[n]
			continue
		}
		doc, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = doc[seg.text]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
