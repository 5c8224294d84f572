package dql

import (
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"

	"dql/internal/store"
)

func mustParse(t *testing.T, input string) Statement {
	t.Helper()
	stmt, err := Parse(input, nil)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", input, err)
	}
	return stmt
}

func TestParseSelectStar(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM posts WHERE username = 'steve';")
	sel, ok := stmt.(*SelectStatement)
	if !ok {
		t.Fatalf("Expected SelectStatement, got %T", stmt)
	}
	if sel.Table != "posts" {
		t.Errorf("Table = %s", sel.Table)
	}
	if !sel.Selection.All {
		t.Error("Expected SELECT *")
	}
	if got := ConstraintString(sel.Where); got != "username = 'steve'" {
		t.Errorf("Where = %q", got)
	}
}

func TestParseSelectClauses(t *testing.T) {
	stmt := mustParse(t, `SELECT CONSISTENT * FROM posts
		WHERE username = 'steve' AND ts > 100
		USING 'ts-index' LIMIT 10 SCAN LIMIT 100 ORDER BY ts DESC;`)
	sel := stmt.(*SelectStatement)
	if !sel.Consistent {
		t.Error("Expected CONSISTENT")
	}
	if sel.Using != "ts-index" {
		t.Errorf("Using = %s", sel.Using)
	}
	if sel.Limit != 10 || sel.ScanLimit != 100 {
		t.Errorf("Limit = %d, ScanLimit = %d", sel.Limit, sel.ScanLimit)
	}
	if sel.OrderBy != "ts" || !sel.Desc {
		t.Errorf("OrderBy = %s, Desc = %v", sel.OrderBy, sel.Desc)
	}
}

func TestParseSelectColumns(t *testing.T) {
	stmt := mustParse(t, "SELECT id, views + clicks AS total FROM posts WHERE id = 'a';")
	sel := stmt.(*SelectStatement)
	if sel.Selection.All || sel.Selection.Count {
		t.Fatal("Expected an explicit attribute list")
	}
	keys := sel.Selection.Keys()
	if len(keys) != 2 || keys[0] != "id" || keys[1] != "total" {
		t.Errorf("Keys = %v", keys)
	}
}

func TestParseSelectCount(t *testing.T) {
	stmt := mustParse(t, "SELECT COUNT(*) FROM posts WHERE id = 'a';")
	sel := stmt.(*SelectStatement)
	if !sel.Selection.Count {
		t.Error("Expected COUNT(*)")
	}
}

func TestParseSelectKeysIn(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM posts WHERE KEYS IN ('a', 1), ('b', 2);")
	sel := stmt.(*SelectStatement)
	if len(sel.KeysIn) != 2 {
		t.Fatalf("Expected 2 key tuples, got %d", len(sel.KeysIn))
	}
	if sel.KeysIn[0][0] != "a" || sel.KeysIn[0][1] != int64(1) {
		t.Errorf("First tuple = %v", sel.KeysIn[0])
	}
}

func TestParseSelectKeysInRestrictions(t *testing.T) {
	bad := []string{
		"SELECT * FROM t WHERE KEYS IN ('a') USING 'x';",
		"SELECT * FROM t WHERE KEYS IN ('a') LIMIT 5;",
		"SELECT id FROM t WHERE KEYS IN ('a');",
		"SELECT * FROM t WHERE KEYS IN ('a', 'b', 'c');",
	}
	for _, input := range bad {
		if _, err := Parse(input, nil); err == nil {
			t.Errorf("Parse(%q) should fail", input)
		}
	}
}

func TestParseScan(t *testing.T) {
	stmt := mustParse(t, "SCAN posts FILTER views > 100 LIMIT 5 SCAN LIMIT 50 USING 'id-index';")
	sc, ok := stmt.(*ScanStatement)
	if !ok {
		t.Fatalf("Expected ScanStatement, got %T", stmt)
	}
	if sc.Table != "posts" || sc.Limit != 5 || sc.ScanLimit != 50 || sc.Using != "id-index" {
		t.Errorf("ScanStatement = %+v", sc)
	}
	if got := ConstraintString(sc.Filter); got != "views > 100" {
		t.Errorf("Filter = %q", got)
	}
}

func TestParseScanBare(t *testing.T) {
	stmt := mustParse(t, "SCAN posts;")
	sc := stmt.(*ScanStatement)
	if sc.Filter != nil {
		t.Error("Bare SCAN should carry no filter")
	}
}

func TestParseCount(t *testing.T) {
	stmt := mustParse(t, "COUNT CONSISTENT posts WHERE username = 'steve';")
	ct, ok := stmt.(*CountStatement)
	if !ok {
		t.Fatalf("Expected CountStatement, got %T", stmt)
	}
	if !ct.Consistent || ct.Table != "posts" {
		t.Errorf("CountStatement = %+v", ct)
	}
}

func TestParseInsertPairs(t *testing.T) {
	stmt := mustParse(t, "INSERT INTO posts (username='steve', views=3), (username='dave');")
	ins, ok := stmt.(*InsertStatement)
	if !ok {
		t.Fatalf("Expected InsertStatement, got %T", stmt)
	}
	if len(ins.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(ins.Items))
	}
	if ins.Items[0]["username"] != "steve" || ins.Items[0]["views"] != int64(3) {
		t.Errorf("First item = %v", ins.Items[0])
	}
	if ins.Items[1]["username"] != "dave" {
		t.Errorf("Second item = %v", ins.Items[1])
	}
}

func TestParseInsertValues(t *testing.T) {
	stmt := mustParse(t, "INSERT INTO posts (username, views) VALUES ('steve', 3), ('dave', 4);")
	ins := stmt.(*InsertStatement)
	if len(ins.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(ins.Items))
	}
	if ins.Items[1]["username"] != "dave" || ins.Items[1]["views"] != int64(4) {
		t.Errorf("Second item = %v", ins.Items[1])
	}
}

func TestParseInsertValuesArityMismatch(t *testing.T) {
	bad := []string{
		"INSERT INTO t (a, b) VALUES (1);",
		"INSERT INTO t (a) VALUES (1, 2);",
	}
	for _, input := range bad {
		if _, err := Parse(input, nil); err == nil {
			t.Errorf("Parse(%q) should fail", input)
		}
	}
}

func TestParseUpdateSet(t *testing.T) {
	stmt := mustParse(t, "UPDATE posts SET views = views + 1, title = 'x' WHERE id = 'a';")
	up, ok := stmt.(*UpdateStatement)
	if !ok {
		t.Fatalf("Expected UpdateStatement, got %T", stmt)
	}
	if up.Returns != store.ReturnNone {
		t.Errorf("Default Returns = %s, want NONE", up.Returns)
	}
	if got := up.Update.String(); got != "SET views = (views + 1), title = 'x'" {
		t.Errorf("Update = %q", got)
	}
}

func TestParseUpdateCompoundOperators(t *testing.T) {
	stmt := mustParse(t, "UPDATE posts SET views += 4, score -= 2, tags << 'go', tags2 >> 'old' WHERE id = 'a';")
	up := stmt.(*UpdateStatement)
	cl := up.Update.Clauses
	if len(cl) != 4 {
		t.Fatalf("Expected 4 clauses, got %d", len(cl))
	}
	if cl[0].Op != UpdateAdd || cl[0].Value != int64(4) {
		t.Errorf("+= clause = %+v", cl[0])
	}
	if cl[1].Op != UpdateAdd || cl[1].Value != int64(-2) {
		t.Errorf("-= clause = %+v", cl[1])
	}
	if cl[2].Op != UpdateAdd {
		t.Errorf("<< clause op = %s", cl[2].Op)
	}
	if s, ok := cl[2].Value.(Set); !ok || len(s) != 1 || s[0] != "go" {
		t.Errorf("<< operand = %v", cl[2].Value)
	}
	if cl[3].Op != UpdateDelete {
		t.Errorf(">> clause op = %s", cl[3].Op)
	}
}

func TestParseUpdateRemoveAddDelete(t *testing.T) {
	stmt := mustParse(t, "UPDATE posts REMOVE draft ADD views 1 DELETE tags ('old') WHERE id = 'a';")
	up := stmt.(*UpdateStatement)
	cl := up.Update.Clauses
	if len(cl) != 3 {
		t.Fatalf("Expected 3 clauses, got %d", len(cl))
	}
	if cl[0].Op != UpdateRemove || cl[0].Field != "draft" {
		t.Errorf("REMOVE clause = %+v", cl[0])
	}
	if cl[1].Op != UpdateAdd || cl[1].Value != int64(1) {
		t.Errorf("ADD clause = %+v", cl[1])
	}
	if cl[2].Op != UpdateDelete {
		t.Errorf("DELETE clause = %+v", cl[2])
	}
}

func TestParseUpdateReturns(t *testing.T) {
	tests := []struct {
		suffix string
		want   string
	}{
		{"RETURNS NONE", store.ReturnNone},
		{"RETURNS ALL OLD", store.ReturnAllOld},
		{"RETURNS ALL NEW", store.ReturnAllNew},
		{"RETURNS UPDATED OLD", store.ReturnUpdatedOld},
		{"RETURNS UPDATED NEW", store.ReturnUpdatedNew},
	}
	for _, tt := range tests {
		stmt := mustParse(t, "UPDATE t SET x = 1 WHERE id = 'a' "+tt.suffix+";")
		if got := stmt.(*UpdateStatement).Returns; got != tt.want {
			t.Errorf("%s parsed as %s", tt.suffix, got)
		}
	}
}

func TestParseUpdateDuplicateField(t *testing.T) {
	_, err := Parse("UPDATE t SET x = 1, x = 2 WHERE id = 'a';", nil)
	if GetCode(err) != ErrCodeDuplicateFieldUpdate {
		t.Errorf("Expected a duplicate-field error, got %v", err)
	}
}

func TestParseDelete(t *testing.T) {
	stmt := mustParse(t, "DELETE FROM posts WHERE username = 'steve';")
	del, ok := stmt.(*DeleteStatement)
	if !ok {
		t.Fatalf("Expected DeleteStatement, got %T", stmt)
	}
	if del.Table != "posts" {
		t.Errorf("Table = %s", del.Table)
	}
}

func TestParseDeleteKeysIn(t *testing.T) {
	stmt := mustParse(t, "DELETE FROM posts WHERE KEYS IN ('a'), ('b');")
	del := stmt.(*DeleteStatement)
	if len(del.KeysIn) != 2 {
		t.Errorf("KeysIn = %v", del.KeysIn)
	}
}

func TestParseCreateTable(t *testing.T) {
	stmt := mustParse(t, `CREATE TABLE posts (
		username STRING HASH KEY,
		id STRING RANGE KEY,
		ts NUMBER ALL INDEX('ts-index'),
		THROUGHPUT (10, 5)
	) GLOBAL ALL INDEX ('id-index', id, ts, THROUGHPUT (2, 1));`)
	cr, ok := stmt.(*CreateStatement)
	if !ok {
		t.Fatalf("Expected CreateStatement, got %T", stmt)
	}
	desc := cr.Description
	if desc.Name != "posts" {
		t.Errorf("Name = %s", desc.Name)
	}
	if desc.HashKey.Name != "username" || desc.HashKey.Type != store.TypeString {
		t.Errorf("HashKey = %+v", desc.HashKey)
	}
	if desc.RangeKey == nil || desc.RangeKey.Name != "id" {
		t.Errorf("RangeKey = %+v", desc.RangeKey)
	}
	if desc.Throughput.Read != 10 || desc.Throughput.Write != 5 {
		t.Errorf("Throughput = %+v", desc.Throughput)
	}
	if len(desc.LocalIndexes) != 1 || desc.LocalIndexes[0].Name != "ts-index" {
		t.Fatalf("LocalIndexes = %+v", desc.LocalIndexes)
	}
	if desc.LocalIndexes[0].RangeKey.Type != store.TypeNumber {
		t.Errorf("Local index key type = %s", desc.LocalIndexes[0].RangeKey.Type)
	}
	if len(desc.GlobalIndexes) != 1 {
		t.Fatalf("GlobalIndexes = %+v", desc.GlobalIndexes)
	}
	gsi := desc.GlobalIndexes[0]
	if gsi.Name != "id-index" || gsi.HashKey.Name != "id" || gsi.RangeKey.Name != "ts" {
		t.Errorf("GSI = %+v", gsi)
	}
	// Key types resolve through the table's attribute declarations.
	if gsi.HashKey.Type != store.TypeString || gsi.RangeKey.Type != store.TypeNumber {
		t.Errorf("GSI key types = %s/%s", gsi.HashKey.Type, gsi.RangeKey.Type)
	}
	if gsi.Throughput.Read != 2 || gsi.Throughput.Write != 1 {
		t.Errorf("GSI throughput = %+v", gsi.Throughput)
	}
}

func TestParseCreateTableIfNotExists(t *testing.T) {
	stmt := mustParse(t, "CREATE TABLE IF NOT EXISTS t (id STRING HASH KEY);")
	if !stmt.(*CreateStatement).IfNotExists {
		t.Error("Expected IfNotExists")
	}
}

func TestParseCreateTableKeysOnlyIndex(t *testing.T) {
	stmt := mustParse(t, `CREATE TABLE t (
		id STRING HASH KEY,
		ts NUMBER KEYS INDEX('k'),
		tag STRING INCLUDE INDEX('i', ['a', 'b'])
	);`)
	desc := stmt.(*CreateStatement).Description
	if desc.LocalIndexes[0].Projection != store.ProjectKeysOnly {
		t.Errorf("Projection = %s", desc.LocalIndexes[0].Projection)
	}
	if desc.LocalIndexes[1].Projection != store.ProjectInclude {
		t.Errorf("Projection = %s", desc.LocalIndexes[1].Projection)
	}
	if len(desc.LocalIndexes[1].Includes) != 2 {
		t.Errorf("Includes = %v", desc.LocalIndexes[1].Includes)
	}
}

func TestParseCreateTableMissingHashKey(t *testing.T) {
	_, err := Parse("CREATE TABLE t (id STRING RANGE KEY);", nil)
	if err == nil {
		t.Fatal("Expected an error for a table without a hash key")
	}
}

func TestParseCreateGlobalIndexUndeclaredKey(t *testing.T) {
	// GSI keys need a type, declared or inline.
	_, err := Parse("CREATE TABLE t (id STRING HASH KEY) GLOBAL ALL INDEX ('g', other);", nil)
	if err == nil {
		t.Fatal("Expected an error for an untyped index key")
	}
	stmt := mustParse(t, "CREATE TABLE t (id STRING HASH KEY) GLOBAL ALL INDEX ('g', other NUMBER);")
	gsi := stmt.(*CreateStatement).Description.GlobalIndexes[0]
	if gsi.HashKey.Type != store.TypeNumber {
		t.Errorf("Inline key type = %s", gsi.HashKey.Type)
	}
}

func TestParseDrop(t *testing.T) {
	stmt := mustParse(t, "DROP TABLE IF EXISTS posts;")
	dr, ok := stmt.(*DropStatement)
	if !ok {
		t.Fatalf("Expected DropStatement, got %T", stmt)
	}
	if dr.Table != "posts" || !dr.IfExists {
		t.Errorf("DropStatement = %+v", dr)
	}
}

func TestParseAlter(t *testing.T) {
	stmt := mustParse(t, "ALTER TABLE posts SET THROUGHPUT (20, 10);")
	al := stmt.(*AlterStatement)
	if al.Throughput == nil || al.Throughput.Read != 20 || al.Throughput.Write != 10 {
		t.Errorf("Throughput = %+v", al.Throughput)
	}

	stmt = mustParse(t, "ALTER TABLE posts SET INDEX 'id-index' THROUGHPUT (4, 2);")
	al = stmt.(*AlterStatement)
	if al.IndexName != "id-index" || al.IndexThroughput == nil || al.Throughput != nil {
		t.Errorf("AlterStatement = %+v", al)
	}

	stmt = mustParse(t, "ALTER TABLE posts DROP INDEX 'id-index' IF EXISTS;")
	al = stmt.(*AlterStatement)
	if al.DropIndex != "id-index" || !al.IfExists {
		t.Errorf("AlterStatement = %+v", al)
	}

	stmt = mustParse(t, "ALTER TABLE posts CREATE GLOBAL ALL INDEX ('g', author STRING) IF NOT EXISTS;")
	al = stmt.(*AlterStatement)
	if al.CreateIndex == nil || al.CreateIndex.Name != "g" || !al.IfNotExists {
		t.Errorf("AlterStatement = %+v", al)
	}
}

func TestParseDump(t *testing.T) {
	stmt := mustParse(t, "DUMP SCHEMA;")
	if len(stmt.(*DumpStatement).Tables) != 0 {
		t.Error("Bare DUMP SCHEMA should name no tables")
	}
	stmt = mustParse(t, "DUMP SCHEMA posts, users;")
	tables := stmt.(*DumpStatement).Tables
	if len(tables) != 2 || tables[0] != "posts" || tables[1] != "users" {
		t.Errorf("Tables = %v", tables)
	}
}

func TestParseExplainAnalyze(t *testing.T) {
	stmt := mustParse(t, "EXPLAIN SELECT * FROM t WHERE id = 'a';")
	ex, ok := stmt.(*ExplainStatement)
	if !ok {
		t.Fatalf("Expected ExplainStatement, got %T", stmt)
	}
	if _, ok := ex.Target.(*SelectStatement); !ok {
		t.Errorf("Target = %T", ex.Target)
	}

	stmt = mustParse(t, "ANALYZE SCAN t;")
	an, ok := stmt.(*AnalyzeStatement)
	if !ok {
		t.Fatalf("Expected AnalyzeStatement, got %T", stmt)
	}
	if _, ok := an.Target.(*ScanStatement); !ok {
		t.Errorf("Target = %T", an.Target)
	}
}

func TestParseConstraintForms(t *testing.T) {
	tests := []struct {
		where string
		want  string
	}{
		{"a = 1 AND b = 2 AND c = 3", "(a = 1 AND b = 2 AND c = 3)"},
		{"a = 1 OR b = 2", "(a = 1 OR b = 2)"},
		{"NOT a = 1", "NOT a = 1"},
		{"a BETWEEN 1 AND 5", "a BETWEEN 1 AND 5"},
		{"a IN (1, 2)", "a IN (1, 2)"},
		{"a IS NULL", "attribute_not_exists(a)"},
		{"a IS NOT NULL", "attribute_exists(a)"},
		{"a BEGINS WITH 'x'", "begins_with(a, 'x')"},
		{"begins_with(a, 'x')", "begins_with(a, 'x')"},
		{"a CONTAINS 'x'", "contains(a, 'x')"},
		{"a NOT CONTAINS 'x'", "NOT contains(a, 'x')"},
		{"contains(a, 'x')", "contains(a, 'x')"},
		{"size(a) > 10", "size(a) > 10"},
		{"attribute_type(a, NUMBER)", "attribute_type(a, 'N')"},
		{"a != 1", "a <> 1"},
		{"(a = 1 OR b = 2) AND c = 3", "((a = 1 OR b = 2) AND c = 3)"},
	}
	for _, tt := range tests {
		stmt := mustParse(t, "SELECT * FROM t WHERE "+tt.where+";")
		got := ConstraintString(stmt.(*SelectStatement).Where)
		if got != tt.want {
			t.Errorf("WHERE %s parsed as %q, want %q", tt.where, got, tt.want)
		}
	}
}

func TestParseVariableResolution(t *testing.T) {
	scope := NewScope()
	scope.Set("who", "steve")
	stmt, err := Parse("SELECT * FROM t WHERE username = who;", scope)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c := stmt.(*SelectStatement).Where.(*OperatorConstraint)
	if c.Value != "steve" {
		t.Errorf("Resolved value = %v", c.Value)
	}
}

func TestParseUnknownVariable(t *testing.T) {
	// Comparison operands fall back to field references, but plain
	// value positions still require a bound variable.
	_, err := Parse("INSERT INTO t (id=who);", nil)
	if GetCode(err) != ErrCodeUnknownVariable {
		t.Fatalf("Expected an unknown-variable error, got %v", err)
	}
	_, err = Parse("SELECT * FROM t WHERE a = who + 1;", nil)
	if GetCode(err) != ErrCodeUnknownVariable {
		t.Fatalf("Expected an unknown-variable error, got %v", err)
	}
}

func TestParseFieldComparison(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM t WHERE id = 1 AND a = b;")
	conj := stmt.(*SelectStatement).Where.(*Conjunction)
	c := conj.Pieces[1].(*OperatorConstraint)
	if c.Value != (FieldReference{Name: "b"}) {
		t.Fatalf("Value = %#v, want a reference to field b", c.Value)
	}
	if got := ConstraintString(conj); got != "(id = 1 AND a = b)" {
		t.Errorf("ConstraintString = %q", got)
	}
}

func TestParseFieldComparisonScopeWins(t *testing.T) {
	scope := NewScope()
	scope.Set("b", int64(7))
	stmt, err := Parse("SELECT * FROM t WHERE a = b;", scope)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c := stmt.(*SelectStatement).Where.(*OperatorConstraint)
	if c.Value != int64(7) {
		t.Errorf("Value = %#v, want the bound variable", c.Value)
	}
}

func TestParseUnclosedString(t *testing.T) {
	input := "SELECT * FROM t WHERE id = 'abc;"
	_, err := Parse(input, nil)
	if GetCode(err) != ErrCodeUnclosedString {
		t.Fatalf("Expected an unclosed-string error, got %v", err)
	}
	if pos := err.(*Error).Position; pos != strings.IndexByte(input, '\'') {
		t.Errorf("Position = %d, want the opening quote", pos)
	}

	_, err = Parse("INSERT INTO t (id=b'ab);", nil)
	if GetCode(err) != ErrCodeUnclosedString {
		t.Fatalf("Expected an unclosed-string error for binary, got %v", err)
	}
}

func TestParseValueArithmeticFolds(t *testing.T) {
	v, err := ParseValue("1 + 2", nil)
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	if v != int64(3) {
		t.Errorf("1 + 2 = %v", v)
	}

	v, err = ParseValue("TIMESTAMP('2024-06-01') + INTERVAL '1d'", nil)
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	ts, ok := v.(time.Time)
	if !ok {
		t.Fatalf("Expected a time value, got %T", v)
	}
	if ts.Day() != 2 {
		t.Errorf("Folded timestamp = %v, want June 2", ts)
	}
}

func TestParseDecimalLiteralStaysExact(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM t WHERE price = 4.5;")
	c := stmt.(*SelectStatement).Where.(*OperatorConstraint)
	d, ok := c.Value.(*apd.Decimal)
	if !ok {
		t.Fatalf("Expected a decimal, got %T", c.Value)
	}
	if d.Text('f') != "4.5" {
		t.Errorf("Decimal = %s", d.Text('f'))
	}
}

func TestParseReservedWordAsField(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM t WHERE count > 5;")
	c := stmt.(*SelectStatement).Where.(*OperatorConstraint)
	if c.Field != "count" {
		t.Errorf("Field = %q, want the original spelling", c.Field)
	}
}

func TestParseSyntaxErrorPosition(t *testing.T) {
	_, err := Parse("SELECT * FRUM t;", nil)
	if err == nil {
		t.Fatal("Expected a syntax error")
	}
	e, ok := err.(*Error)
	if !ok || e.Category != CategorySyntax {
		t.Fatalf("Expected a syntax error, got %v", err)
	}
	if e.Position < 0 {
		t.Error("Syntax error should carry a position")
	}
}

func TestParseTrailingGarbage(t *testing.T) {
	_, err := Parse("SELECT * FROM t; bogus", nil)
	if err == nil {
		t.Fatal("Expected an error for trailing input")
	}
}
