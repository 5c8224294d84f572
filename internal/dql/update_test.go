package dql

import (
	"testing"

	"github.com/cockroachdb/apd/v3"

	"dql/internal/store"
)

func TestNewUpdateExpressionRejectsDuplicates(t *testing.T) {
	_, err := NewUpdateExpression([]UpdateClause{
		{Op: UpdateSet, Field: "x", Expr: &ValueSelection{Value: int64(1)}},
		{Op: UpdateRemove, Field: "x"},
	})
	if err == nil {
		t.Fatal("Expected a duplicate-field error")
	}
	if GetCode(err) != ErrCodeDuplicateFieldUpdate {
		t.Errorf("Expected code %d, got %d", ErrCodeDuplicateFieldUpdate, GetCode(err))
	}
}

func TestUpdateExpressionBuildGroups(t *testing.T) {
	u, err := NewUpdateExpression([]UpdateClause{
		{Op: UpdateSet, Field: "a", Expr: &ValueSelection{Value: int64(1)}},
		{Op: UpdateAdd, Field: "views", Value: int64(4)},
		{Op: UpdateRemove, Field: "old"},
		{Op: UpdateSet, Field: "b", Expr: &ValueSelection{Value: "x"}},
		{Op: UpdateDelete, Field: "tags", Value: Set{"stale"}},
	})
	if err != nil {
		t.Fatalf("NewUpdateExpression failed: %v", err)
	}
	want := "SET a = 1, b = 'x' REMOVE old ADD views 4 DELETE tags ('stale')"
	if got := u.String(); got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}

func TestUpdateActionsSet(t *testing.T) {
	u, _ := NewUpdateExpression([]UpdateClause{
		{Op: UpdateSet, Field: "views", Expr: &ArithSelection{
			Op:    '+',
			Left:  &FieldSelection{Path: "views"},
			Right: &ValueSelection{Value: int64(4)},
		}},
	})
	actions, err := u.Actions(store.Item{"views": int64(10)}, nil)
	if err != nil {
		t.Fatalf("Actions failed: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(actions))
	}
	if actions[0].Kind != store.ActionSet || actions[0].Value != int64(14) {
		t.Errorf("action = %+v, want SET views 14", actions[0])
	}
}

func TestUpdateActionsSetNullBecomesRemove(t *testing.T) {
	u, _ := NewUpdateExpression([]UpdateClause{
		{Op: UpdateSet, Field: "gone", Expr: &ValueSelection{Value: nil}},
	})
	actions, err := u.Actions(store.Item{}, nil)
	if err != nil {
		t.Fatalf("Actions failed: %v", err)
	}
	if actions[0].Kind != store.ActionRemove {
		t.Errorf("SET NULL should map to REMOVE, got kind %d", actions[0].Kind)
	}
}

func TestUpdateActionsRowShadowsScope(t *testing.T) {
	scope := NewScope()
	scope.Set("views", int64(999))
	scope.Set("bonus", int64(5))

	u, _ := NewUpdateExpression([]UpdateClause{
		{Op: UpdateSet, Field: "total", Expr: &ArithSelection{
			Op:    '+',
			Left:  &FieldSelection{Path: "views"},
			Right: &FieldSelection{Path: "bonus"},
		}},
	})
	actions, err := u.Actions(store.Item{"views": int64(10)}, scope)
	if err != nil {
		t.Fatalf("Actions failed: %v", err)
	}
	// The row's views wins over the session variable; bonus comes from
	// the scope.
	if actions[0].Value != int64(15) {
		t.Errorf("total = %v, want 15", actions[0].Value)
	}
}

func TestUpdateActionsTimestampNormalized(t *testing.T) {
	ts, _ := ParseTimestamp("2024-06-01", true)
	u, _ := NewUpdateExpression([]UpdateClause{
		{Op: UpdateSet, Field: "at", Expr: &ValueSelection{Value: ts}},
	})
	actions, err := u.Actions(store.Item{}, nil)
	if err != nil {
		t.Fatalf("Actions failed: %v", err)
	}
	d, ok := actions[0].Value.(*apd.Decimal)
	if !ok {
		t.Fatalf("Timestamp should normalize to a decimal epoch, got %T", actions[0].Value)
	}
	if d.Text('f') != "1717200000" {
		t.Errorf("epoch = %s, want 1717200000", d.Text('f'))
	}
}

func TestCoerceToSet(t *testing.T) {
	s := CoerceToSet("a")
	if len(s) != 1 || s[0] != "a" {
		t.Errorf("CoerceToSet('a') = %v", s)
	}
	orig := Set{"a", "b"}
	if got := CoerceToSet(orig); len(got) != 2 {
		t.Errorf("CoerceToSet(set) = %v", got)
	}
}

func TestNegateNumber(t *testing.T) {
	v, err := NegateNumber(int64(4))
	if err != nil {
		t.Fatalf("NegateNumber failed: %v", err)
	}
	if v != int64(-4) {
		t.Errorf("NegateNumber(4) = %v", v)
	}

	dec, _, _ := apd.NewFromString("1.5")
	v, err = NegateNumber(dec)
	if err != nil {
		t.Fatalf("NegateNumber failed: %v", err)
	}
	if v.(*apd.Decimal).Text('f') != "-1.5" {
		t.Errorf("NegateNumber(1.5) = %v", v)
	}

	if _, err := NegateNumber("nope"); GetCode(err) != ErrCodeTypeMismatch {
		t.Errorf("Expected a type mismatch, got %v", err)
	}
}

func TestIfNotExistsSelection(t *testing.T) {
	sel := &IfNotExistsSelection{Field: "views", Default: &ValueSelection{Value: int64(0)}}

	if got := sel.Evaluate(store.Item{"views": int64(7)}); got != int64(7) {
		t.Errorf("Present field: got %v, want 7", got)
	}
	if got := sel.Evaluate(store.Item{}); got != int64(0) {
		t.Errorf("Absent field: got %v, want the default 0", got)
	}
	if got := sel.Build(DummyVisitor{}); got != "if_not_exists(views, 0)" {
		t.Errorf("Build = %q", got)
	}
}

func TestListAppendSelection(t *testing.T) {
	sel := &ListAppendSelection{
		Left:  &FieldSelection{Path: "tags"},
		Right: &ValueSelection{Value: "new"},
	}
	got := sel.Evaluate(store.Item{"tags": []interface{}{"a"}})
	list, ok := got.([]interface{})
	if !ok || len(list) != 2 || list[0] != "a" || list[1] != "new" {
		t.Errorf("list_append = %v", got)
	}

	// A missing left operand appends onto the empty list.
	got = sel.Evaluate(store.Item{})
	list, ok = got.([]interface{})
	if !ok || len(list) != 1 || list[0] != "new" {
		t.Errorf("list_append over missing field = %v", got)
	}
}

func TestSelectionArithMissingOperand(t *testing.T) {
	sel := &ArithSelection{
		Op:    '+',
		Left:  &FieldSelection{Path: "views"},
		Right: &FieldSelection{Path: "clicks"},
	}
	if got := sel.Evaluate(store.Item{"views": int64(3)}); got != int64(3) {
		t.Errorf("Missing operand should yield the other, got %v", got)
	}
}

func TestSelectionArithTypeError(t *testing.T) {
	sel := &ArithSelection{
		Op:    '/',
		Left:  &ValueSelection{Value: "a"},
		Right: &ValueSelection{Value: "b"},
	}
	if _, ok := sel.Evaluate(store.Item{}).(EvalError); !ok {
		t.Error("Dividing strings should produce an EvalError cell")
	}
}

func TestSelectionArithDivisionIsDecimal(t *testing.T) {
	sel := &ArithSelection{
		Op:    '/',
		Left:  &ValueSelection{Value: int64(1)},
		Right: &ValueSelection{Value: int64(4)},
	}
	d, ok := sel.Evaluate(store.Item{}).(*apd.Decimal)
	if !ok {
		t.Fatal("Integer division should produce a decimal")
	}
	if d.Text('f') != "0.25" {
		t.Errorf("1/4 = %s, want 0.25", d.Text('f'))
	}
}
