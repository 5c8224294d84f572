package dql

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
)

func TestParseNumberInteger(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"0", 0},
		{"42", 42},
		{"-7", -7},
		{"9223372036854775807", 9223372036854775807},
	}
	for _, tt := range tests {
		v, err := ParseNumber(tt.text)
		if err != nil {
			t.Fatalf("ParseNumber(%q) failed: %v", tt.text, err)
		}
		n, ok := v.(int64)
		if !ok {
			t.Fatalf("ParseNumber(%q) = %T, want int64", tt.text, v)
		}
		if n != tt.want {
			t.Errorf("ParseNumber(%q) = %d, want %d", tt.text, n, tt.want)
		}
	}
}

func TestParseNumberDecimal(t *testing.T) {
	tests := []string{"4.5", "1e9", "3.14159", "-0.001", "1.5E2"}
	for _, text := range tests {
		v, err := ParseNumber(text)
		if err != nil {
			t.Fatalf("ParseNumber(%q) failed: %v", text, err)
		}
		if _, ok := v.(*apd.Decimal); !ok {
			t.Errorf("ParseNumber(%q) = %T, want *apd.Decimal", text, v)
		}
	}
}

func TestParseNumberOverflowBecomesDecimal(t *testing.T) {
	v, err := ParseNumber("92233720368547758080")
	if err != nil {
		t.Fatalf("ParseNumber failed: %v", err)
	}
	if _, ok := v.(*apd.Decimal); !ok {
		t.Fatalf("Out-of-range integer should become a decimal, got %T", v)
	}
}

func TestParseNumberExact(t *testing.T) {
	// 3.14 has no exact float64; the decimal must carry the digits
	// verbatim.
	v, err := ParseNumber("3.14")
	if err != nil {
		t.Fatalf("ParseNumber failed: %v", err)
	}
	d := v.(*apd.Decimal)
	if d.Text('f') != "3.14" {
		t.Errorf("Decimal renders as %s, want 3.14", d.Text('f'))
	}
}

func TestFormatValue(t *testing.T) {
	dec, _, _ := apd.NewFromString("4.5")
	tests := []struct {
		v    interface{}
		want string
	}{
		{nil, "NULL"},
		{true, "TRUE"},
		{false, "FALSE"},
		{int64(42), "42"},
		{dec, "4.5"},
		{"hello", "'hello'"},
		{"it's", `'it\'s'`},
		{`back\slash`, `'back\\slash'`},
		{Binary("abc"), "b'abc'"},
		{Set{}, "()"},
		{Set{int64(1), int64(2)}, "(1, 2)"},
		{[]interface{}{int64(1), "a"}, "[1, 'a']"},
		{map[string]interface{}{"b": int64(2), "a": int64(1)}, "{'a': 1, 'b': 2}"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.v); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestFormatValueRoundTrip(t *testing.T) {
	// Every literal must reparse to an equal value.
	values := []interface{}{
		nil,
		true,
		int64(-5),
		"with 'quotes' and \\slashes",
		Binary{0x61, 0x62},
		Set{"a", "b"},
		[]interface{}{int64(1), []interface{}{int64(2)}},
		map[string]interface{}{"k": "v"},
	}
	for _, v := range values {
		text := FormatValue(v)
		got, err := ParseValue(text, nil)
		if err != nil {
			t.Fatalf("Reparsing %q failed: %v", text, err)
		}
		if FormatValue(got) != text {
			t.Errorf("Round trip of %q produced %q", text, FormatValue(got))
		}
	}
}
