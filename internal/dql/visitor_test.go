package dql

import (
	"testing"
)

func TestEncoderPlainFieldsPassThrough(t *testing.T) {
	e := NewEncoder()
	if got := e.GetField("username"); got != "username" {
		t.Errorf("GetField(username) = %q", got)
	}
	if e.AttributeNames() != nil {
		t.Error("No encoding happened; AttributeNames should be nil")
	}
}

func TestEncoderReservedWordField(t *testing.T) {
	e := NewEncoder()
	got := e.GetField("count")
	if got != "#f1" {
		t.Errorf("GetField(count) = %q, want #f1", got)
	}
	names := e.AttributeNames()
	if names["#f1"] != "count" {
		t.Errorf("AttributeNames[#f1] = %q, want count", names["#f1"])
	}
}

func TestEncoderFieldMemoized(t *testing.T) {
	e := NewEncoder()
	first := e.GetField("order")
	second := e.GetField("order")
	if first != second {
		t.Errorf("Same field encoded twice: %q vs %q", first, second)
	}
	other := e.GetField("select")
	if other == first {
		t.Error("Distinct fields should get distinct placeholders")
	}
	if len(e.AttributeNames()) != 2 {
		t.Errorf("Expected 2 encoded names, got %d", len(e.AttributeNames()))
	}
}

func TestEncoderOddlySpelledField(t *testing.T) {
	e := NewEncoder()
	if got := e.GetField("weird-name"); got != "#f1" {
		t.Errorf("GetField(weird-name) = %q, want #f1", got)
	}
	// Leading digit is not a plain identifier either.
	if got := e.GetField("1st"); got != "#f2" {
		t.Errorf("GetField(1st) = %q, want #f2", got)
	}
}

func TestEncoderDocumentPath(t *testing.T) {
	e := NewEncoder()
	got := e.GetField("meta.count[0].name")
	if got != "meta.#f1[0].name" {
		t.Errorf("GetField(meta.count[0].name) = %q, want meta.#f1[0].name", got)
	}
}

func TestEncoderValuesAlwaysFresh(t *testing.T) {
	e := NewEncoder()
	a := e.GetValue(int64(1))
	b := e.GetValue(int64(1))
	if a != ":v1" || b != ":v2" {
		t.Errorf("Equal values should bind fresh placeholders, got %q and %q", a, b)
	}
	vals := e.ExpressionValues()
	if vals[":v1"] != int64(1) || vals[":v2"] != int64(1) {
		t.Errorf("ExpressionValues = %v", vals)
	}
}

func TestEncoderEmptyMapsAreNil(t *testing.T) {
	e := NewEncoder()
	if e.AttributeNames() != nil || e.ExpressionValues() != nil {
		t.Error("A fresh encoder should report nil substitution maps")
	}
}

func TestEncoderConstraintRendering(t *testing.T) {
	c := NewConjunction(true,
		NewOperatorConstraint("count", ">", int64(5)),
		NewOperatorConstraint("name", "=", "x"),
	)
	e := NewEncoder()
	text := c.Build(e)
	want := "(#f1 > :v1 AND name = :v2)"
	if text != want {
		t.Errorf("Rendered constraint = %q, want %q", text, want)
	}
}

func TestDummyVisitorRoundTrip(t *testing.T) {
	// The dummy rendering parses back to an equivalent constraint.
	c := NewConjunction(true,
		NewOperatorConstraint("username", "=", "steve"),
		NewBetweenConstraint("ts", int64(1), int64(9)),
	)
	text := ConstraintString(c)

	stmt, err := Parse("SELECT * FROM t WHERE "+text+";", nil)
	if err != nil {
		t.Fatalf("Reparsing %q failed: %v", text, err)
	}
	sel := stmt.(*SelectStatement)
	if got := ConstraintString(sel.Where); got != text {
		t.Errorf("Round trip = %q, want %q", got, text)
	}
}

func TestSplitFieldPath(t *testing.T) {
	segs := splitFieldPath("a.b[2].c")
	want := []fieldSegment{
		{text: "a"}, {text: "b"}, {text: "[2]", index: true}, {text: "c"},
	}
	if len(segs) != len(want) {
		t.Fatalf("Expected %d segments, got %d: %v", len(want), len(segs), segs)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segment[%d] = %+v, want %+v", i, segs[i], want[i])
		}
	}
}

func TestFieldNeedsEncoding(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"username", false},
		{"_private", false},
		{"a1", false},
		{"count", true}, // reserved
		{"ORDER", true}, // reserved, any case
		{"1st", true},
		{"has-dash", true},
		{"", true},
	}
	for _, tt := range tests {
		if got := fieldNeedsEncoding(tt.name); got != tt.want {
			t.Errorf("fieldNeedsEncoding(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
