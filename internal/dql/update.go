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
Update expressions.

The clauses of an UPDATE statement map onto four store actions:

	SET f = v        SET    (v = NULL becomes REMOVE)
	f += v           ADD v
	f -= v           ADD -v
	f << v           ADD {v}     (operand coerced to a set)
	f >> v           DELETE {v}  (operand coerced to a set)
	REMOVE f         REMOVE
	ADD f v          ADD
	DELETE f v       DELETE

SET right-hand sides are full selection expressions evaluated per row,
so "SET x = x + 4" reads the row's current x. The engine resolves them
against the row overlaid on the session scope; a row attribute shadows
a session variable of the same name. ADD and DELETE operands are
concrete values fixed at parse time.

A field assigned by more than one clause is rejected when the
expression is built.
*/

package dql

import (
	"strings"

	"github.com/cockroachdb/apd/v3"

	"dql/internal/store"
)

// Update clause operations, post-mapping.
const (
	UpdateSet    = "SET"
	UpdateRemove = "REMOVE"
	UpdateAdd    = "ADD"
	UpdateDelete = "DELETE"
)

// UpdateClause mutates one field. Expr is set for SET clauses, Value
// for ADD and DELETE; REMOVE carries neither.
type UpdateClause struct {
	Op    string
	Field string
	Expr  SelectionNode
	Value interface{}
}

// UpdateExpression is the full clause list of an UPDATE statement.
type UpdateExpression struct {
	Clauses []UpdateClause
}

// NewUpdateExpression builds an update expression, rejecting duplicate
// assignments to one field.
func NewUpdateExpression(clauses []UpdateClause) (*UpdateExpression, error) {
	seen := map[string]bool{}
	for _, cl := range clauses {
		if seen[cl.Field] {
			return nil, DuplicateFieldUpdate(cl.Field)
		}
		seen[cl.Field] = true
	}
	return &UpdateExpression{Clauses: clauses}, nil
}

// Fields lists the fields the expression assigns, in clause order.
func (u *UpdateExpression) Fields() []string {
	fields := make([]string, len(u.Clauses))
	for i, cl := range u.Clauses {
		fields[i] = cl.Field
	}
	return fields
}

// Build renders the expression in store update-expression form, with
// clauses grouped by operation.
func (u *UpdateExpression) Build(v Visitor) string {
	groups := map[string][]string{}
	for _, cl := range u.Clauses {
		var part string
		switch cl.Op {
		case UpdateSet:
			part = v.GetField(cl.Field) + " = " + cl.Expr.Build(v)
		case UpdateRemove:
			part = v.GetField(cl.Field)
		default:
			part = v.GetField(cl.Field) + " " + v.GetValue(cl.Value)
		}
		groups[cl.Op] = append(groups[cl.Op], part)
	}
	var sb strings.Builder
	for _, op := range []string{UpdateSet, UpdateRemove, UpdateAdd, UpdateDelete} {
		if parts, ok := groups[op]; ok {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(op + " " + strings.Join(parts, ", "))
		}
	}
	return sb.String()
}

// String renders the expression as reparsable DQL.
func (u *UpdateExpression) String() string {
	return u.Build(DummyVisitor{})
}

// Actions resolves the expression against one row, producing the store
// actions to apply. SET clauses evaluate their right-hand side against
// the row overlaid on the session scope; a SET resolving to NULL
// becomes REMOVE.
func (u *UpdateExpression) Actions(item store.Item, scope *Scope) ([]store.UpdateAction, error) {
	merged := mergeRowScope(item, scope)
	actions := make([]store.UpdateAction, 0, len(u.Clauses))
	for _, cl := range u.Clauses {
		switch cl.Op {
		case UpdateSet:
			val := cl.Expr.Evaluate(merged)
			if e, ok := val.(EvalError); ok {
				return nil, NewValidationError(e.Msg)
			}
			if val == nil {
				actions = append(actions, store.UpdateAction{
					Field: cl.Field, Kind: store.ActionRemove})
				continue
			}
			actions = append(actions, store.UpdateAction{
				Field: cl.Field, Kind: store.ActionSet, Value: normalizeStoreValue(val)})
		case UpdateRemove:
			actions = append(actions, store.UpdateAction{
				Field: cl.Field, Kind: store.ActionRemove})
		case UpdateAdd:
			actions = append(actions, store.UpdateAction{
				Field: cl.Field, Kind: store.ActionAdd, Value: cl.Value})
		case UpdateDelete:
			actions = append(actions, store.UpdateAction{
				Field: cl.Field, Kind: store.ActionDelete, Value: cl.Value})
		}
	}
	return actions, nil
}

// mergeRowScope flattens the session scope under the row's attributes,
// so SET expressions see both and the row wins on collision.
func mergeRowScope(item store.Item, scope *Scope) store.Item {
	merged := store.Item{}
	if scope != nil {
		for _, name := range scope.Names() {
			v, _ := scope.Get(name)
			merged[name] = v
		}
	}
	for k, v := range item {
		merged[k] = v
	}
	return merged
}

// CoerceToSet wraps a scalar into a single-element set; sets pass
// through. Used by the << and >> operators.
func CoerceToSet(v interface{}) Set {
	if s, ok := v.(Set); ok {
		return s
	}
	return Set{v}
}

// NegateNumber returns the numeric negation of a value, for the -=
// operator.
func NegateNumber(v interface{}) (interface{}, error) {
	switch n := v.(type) {
	case int64:
		return -n, nil
	case *apd.Decimal:
		var out apd.Decimal
		if _, err := decCtx.Neg(&out, n); err != nil {
			return nil, err
		}
		return &out, nil
	}
	return nil, TypeMismatch("-=", v)
}

// IfNotExistsSelection is the SET function if_not_exists(field,
// default): the field's current value when present, the default
// otherwise.
type IfNotExistsSelection struct {
	Field   string
	Default SelectionNode
}

func (s *IfNotExistsSelection) Build(v Visitor) string {
	return "if_not_exists(" + v.GetField(s.Field) + ", " + s.Default.Build(v) + ")"
}

func (s *IfNotExistsSelection) Fields(fields []string) []string {
	return s.Default.Fields(appendUnique(fields, rootFieldOf(s.Field)))
}

func (s *IfNotExistsSelection) Evaluate(item store.Item) interface{} {
	if v, ok := resolveItemPath(item, s.Field); ok {
		return v
	}
	return s.Default.Evaluate(item)
}

// ListAppendSelection is the SET function list_append(a, b). Scalar
// operands are treated as single-element lists.
type ListAppendSelection struct {
	Left  SelectionNode
	Right SelectionNode
}

func (s *ListAppendSelection) Build(v Visitor) string {
	return "list_append(" + s.Left.Build(v) + ", " + s.Right.Build(v) + ")"
}

func (s *ListAppendSelection) Fields(fields []string) []string {
	return s.Right.Fields(s.Left.Fields(fields))
}

func (s *ListAppendSelection) Evaluate(item store.Item) interface{} {
	left := s.Left.Evaluate(item)
	right := s.Right.Evaluate(item)
	if e, ok := left.(EvalError); ok {
		return e
	}
	if e, ok := right.(EvalError); ok {
		return e
	}
	return append(coerceToList(left), coerceToList(right)...)
}

func coerceToList(v interface{}) []interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return t
	default:
		return []interface{}{t}
	}
}
