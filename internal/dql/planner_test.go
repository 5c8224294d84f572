package dql

import (
	"testing"

	"dql/internal/store"
)

// postsMeta is a table shaped like the docs' example: primary key
// (username, id), a local index on ts and a global index on (id, ts).
func postsMeta() *TableMeta {
	return NewTableMeta(&store.TableDescription{
		Name:     "posts",
		HashKey:  store.AttributeInfo{Name: "username", Type: store.TypeString},
		RangeKey: &store.AttributeInfo{Name: "id", Type: store.TypeString},
		LocalIndexes: []store.LocalIndex{
			{Name: "ts-index", RangeKey: store.AttributeInfo{Name: "ts", Type: store.TypeNumber},
				Projection: store.ProjectAll},
		},
		GlobalIndexes: []store.GlobalIndex{
			{Name: "id-index",
				HashKey:    store.AttributeInfo{Name: "id", Type: store.TypeString},
				RangeKey:   &store.AttributeInfo{Name: "ts", Type: store.TypeNumber},
				Projection: store.ProjectAll},
		},
	})
}

func TestQueryIndexesOrder(t *testing.T) {
	meta := postsMeta()
	indexes := meta.QueryIndexes()
	wantNames := []string{"TABLE", "ts-index", "id-index"}
	if len(indexes) != len(wantNames) {
		t.Fatalf("Expected %d indexes, got %d", len(wantNames), len(indexes))
	}
	for i, name := range wantNames {
		if indexes[i].Name != name {
			t.Errorf("index[%d] = %s, want %s", i, indexes[i].Name, name)
		}
	}
	if !indexes[0].IsPrimary() || !indexes[0].Scannable {
		t.Error("primary pseudo-index should be primary and scannable")
	}
	if indexes[1].Scannable {
		t.Error("local index should not be scannable")
	}
	if !indexes[2].Global || !indexes[2].Scannable {
		t.Error("global index should be global and scannable")
	}
	if indexes[1].HashKey != "username" || indexes[1].RangeKey != "ts" {
		t.Errorf("local index keys = (%s, %s), want (username, ts)",
			indexes[1].HashKey, indexes[1].RangeKey)
	}
}

func TestSelectIndexPrimaryFirst(t *testing.T) {
	meta := postsMeta()
	c := NewConjunction(true,
		NewOperatorConstraint("username", "=", "steve"),
		NewOperatorConstraint("id", "=", "p1"),
	)
	idx, err := SelectIndex(c, meta, "")
	if err != nil {
		t.Fatalf("SelectIndex failed: %v", err)
	}
	if idx == nil || idx.Name != PrimaryIndexName {
		t.Fatalf("Expected the primary index, got %v", idx)
	}
}

func TestSelectIndexPrefersServedRangeKey(t *testing.T) {
	// username alone matches both TABLE and ts-index on hash; the ts
	// constraint narrows the choice to ts-index.
	meta := postsMeta()
	c := NewConjunction(true,
		NewOperatorConstraint("username", "=", "steve"),
		NewOperatorConstraint("ts", ">", int64(100)),
	)
	idx, err := SelectIndex(c, meta, "")
	if err != nil {
		t.Fatalf("SelectIndex failed: %v", err)
	}
	if idx == nil || idx.Name != "ts-index" {
		t.Fatalf("Expected ts-index, got %v", idx)
	}
}

func TestSelectIndexGlobal(t *testing.T) {
	meta := postsMeta()
	c := NewOperatorConstraint("id", "=", "p1")
	idx, err := SelectIndex(c, meta, "")
	if err != nil {
		t.Fatalf("SelectIndex failed: %v", err)
	}
	if idx == nil || idx.Name != "id-index" {
		t.Fatalf("Expected id-index, got %v", idx)
	}
}

func TestSelectIndexNoMatch(t *testing.T) {
	meta := postsMeta()
	c := NewOperatorConstraint("status", "=", "open")
	idx, err := SelectIndex(c, meta, "")
	if err != nil {
		t.Fatalf("SelectIndex failed: %v", err)
	}
	if idx != nil {
		t.Fatalf("Expected no index, got %s", idx.Name)
	}
}

func TestSelectIndexUsingPin(t *testing.T) {
	meta := postsMeta()
	c := NewConjunction(true,
		NewOperatorConstraint("username", "=", "steve"),
		NewOperatorConstraint("ts", ">", int64(100)),
	)
	idx, err := SelectIndex(c, meta, "TABLE")
	if err != nil {
		t.Fatalf("USING TABLE failed: %v", err)
	}
	if idx.Name != PrimaryIndexName {
		t.Errorf("Expected the pinned primary index, got %s", idx.Name)
	}
}

func TestSelectIndexUsingMismatch(t *testing.T) {
	meta := postsMeta()
	c := NewOperatorConstraint("username", "=", "steve")
	_, err := SelectIndex(c, meta, "id-index")
	if err == nil {
		t.Fatal("Expected an index key mismatch error")
	}
	if GetCode(err) != ErrCodeIndexKeyMismatch {
		t.Errorf("Expected code %d, got %d", ErrCodeIndexKeyMismatch, GetCode(err))
	}
}

func TestSelectIndexUsingUnknown(t *testing.T) {
	meta := postsMeta()
	c := NewOperatorConstraint("username", "=", "steve")
	_, err := SelectIndex(c, meta, "nope")
	if err == nil {
		t.Fatal("Expected an error for an unknown index")
	}
	if GetCode(err) != ErrCodeValidation {
		t.Errorf("Expected a validation error, got code %d", GetCode(err))
	}
}

func TestBuildPlanScanGate(t *testing.T) {
	meta := postsMeta()
	c := NewOperatorConstraint("status", "=", "open")

	_, err := BuildPlan(c, meta, "", false)
	if err == nil {
		t.Fatal("Expected NoIndexAvailable without scan permission")
	}
	if GetCode(err) != ErrCodeNoIndexAvailable {
		t.Errorf("Expected code %d, got %d", ErrCodeNoIndexAvailable, GetCode(err))
	}

	plan, err := BuildPlan(c, meta, "", true)
	if err != nil {
		t.Fatalf("BuildPlan with scans allowed failed: %v", err)
	}
	if plan.Kind != PlanScan {
		t.Error("Expected a scan plan")
	}
	if plan.Filter != c {
		t.Error("Scan plan should carry the whole constraint as filter")
	}
}

func TestBuildPlanQuery(t *testing.T) {
	meta := postsMeta()
	c := NewConjunction(true,
		NewOperatorConstraint("username", "=", "steve"),
		NewOperatorConstraint("ts", ">", int64(100)),
		NewOperatorConstraint("views", ">", int64(5)),
	)
	plan, err := BuildPlan(c, meta, "", false)
	if err != nil {
		t.Fatalf("BuildPlan failed: %v", err)
	}
	if plan.Kind != PlanQuery || plan.Index.Name != "ts-index" {
		t.Fatalf("Expected a query over ts-index, got kind %d index %s", plan.Kind, plan.Index.Name)
	}
	if plan.Key.HashField != "username" || plan.Key.HashValue != "steve" {
		t.Errorf("hash condition = %s=%v", plan.Key.HashField, plan.Key.HashValue)
	}
	if plan.Key.RangeField != "ts" || plan.Key.RangeOp != store.RangeGT {
		t.Errorf("range condition = %s %s", plan.Key.RangeField, plan.Key.RangeOp)
	}
	if ConstraintString(plan.Filter) != "views > 5" {
		t.Errorf("filter = %q, want %q", ConstraintString(plan.Filter), "views > 5")
	}
}

func TestScanIndex(t *testing.T) {
	meta := postsMeta()

	idx, err := ScanIndex(meta, "")
	if err != nil {
		t.Fatalf("ScanIndex failed: %v", err)
	}
	if idx.Name != PrimaryIndexName {
		t.Errorf("Default scan target = %s, want TABLE", idx.Name)
	}

	idx, err = ScanIndex(meta, "id-index")
	if err != nil {
		t.Fatalf("ScanIndex over the global index failed: %v", err)
	}
	if idx.Name != "id-index" {
		t.Errorf("scan target = %s", idx.Name)
	}

	if _, err := ScanIndex(meta, "ts-index"); GetCode(err) != ErrCodeIndexNotScannable {
		t.Errorf("Expected IndexNotScannable for a local index, got %v", err)
	}
	if _, err := ScanIndex(meta, "nope"); GetCode(err) != ErrCodeValidation {
		t.Errorf("Expected a validation error for an unknown index, got %v", err)
	}
}

func TestExtractKeyCondition(t *testing.T) {
	idx := &QueryIndex{Name: "TABLE", HashKey: "pk", RangeKey: "sk"}

	tests := []struct {
		name    string
		query   ConstraintExpression
		wantOp  string
		wantLen int
	}{
		{"hash only", NewOperatorConstraint("pk", "=", "x"), "", 0},
		{"range eq", NewConjunction(true,
			NewOperatorConstraint("pk", "=", "x"),
			NewOperatorConstraint("sk", "=", int64(1))), store.RangeEQ, 1},
		{"range lt", NewConjunction(true,
			NewOperatorConstraint("pk", "=", "x"),
			NewOperatorConstraint("sk", "<", int64(1))), store.RangeLT, 1},
		{"between", NewConjunction(true,
			NewOperatorConstraint("pk", "=", "x"),
			NewBetweenConstraint("sk", int64(1), int64(9))), store.RangeBetween, 2},
		{"begins_with", NewConjunction(true,
			NewOperatorConstraint("pk", "=", "x"),
			NewFunctionConstraint2("begins_with", "sk", "a#")), store.RangeBeginsWith, 1},
	}
	for _, tt := range tests {
		key, err := ExtractKeyCondition(tt.query, idx)
		if err != nil {
			t.Fatalf("%s: ExtractKeyCondition failed: %v", tt.name, err)
		}
		if key.HashField != "pk" || key.HashValue != "x" {
			t.Errorf("%s: hash = %s=%v", tt.name, key.HashField, key.HashValue)
		}
		if key.RangeOp != tt.wantOp {
			t.Errorf("%s: range op = %q, want %q", tt.name, key.RangeOp, tt.wantOp)
		}
		if len(key.RangeValues) != tt.wantLen {
			t.Errorf("%s: %d range values, want %d", tt.name, len(key.RangeValues), tt.wantLen)
		}
	}
}

func TestExtractKeyConditionMissingHash(t *testing.T) {
	idx := &QueryIndex{Name: "TABLE", HashKey: "pk", RangeKey: "sk"}
	_, err := ExtractKeyCondition(NewOperatorConstraint("sk", "<", int64(1)), idx)
	if err == nil {
		t.Fatal("Expected an error for a missing hash constraint")
	}
}
