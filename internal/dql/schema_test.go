package dql

import (
	"reflect"
	"strings"
	"testing"

	"dql/internal/store"
)

func richDescription() *store.TableDescription {
	return &store.TableDescription{
		Name:     "posts",
		HashKey:  store.AttributeInfo{Name: "username", Type: store.TypeString},
		RangeKey: &store.AttributeInfo{Name: "id", Type: store.TypeString},
		LocalIndexes: []store.LocalIndex{
			{
				Name:       "ts-index",
				RangeKey:   store.AttributeInfo{Name: "ts", Type: store.TypeNumber},
				Projection: store.ProjectInclude,
				Includes:   []string{"title"},
			},
		},
		GlobalIndexes: []store.GlobalIndex{
			{
				Name:       "id-index",
				HashKey:    store.AttributeInfo{Name: "id", Type: store.TypeString},
				RangeKey:   &store.AttributeInfo{Name: "views", Type: store.TypeNumber},
				Projection: store.ProjectKeysOnly,
				Throughput: store.ThroughputInfo{Read: 2, Write: 1},
			},
		},
		Throughput: store.ThroughputInfo{Read: 10, Write: 5},
	}
}

func TestSchemaRoundTrip(t *testing.T) {
	meta := NewTableMeta(richDescription())
	text := meta.Schema()

	stmt, err := Parse(text, nil)
	if err != nil {
		t.Fatalf("Schema output %q does not parse: %v", text, err)
	}
	create, ok := stmt.(*CreateStatement)
	if !ok {
		t.Fatalf("Schema output parsed as %T", stmt)
	}

	got := create.Description
	want := richDescription()
	if got.Name != want.Name || got.HashKey != want.HashKey {
		t.Errorf("Keys differ: got %v/%v", got.Name, got.HashKey)
	}
	if got.RangeKey == nil || *got.RangeKey != *want.RangeKey {
		t.Errorf("Range key = %v", got.RangeKey)
	}
	if !reflect.DeepEqual(got.LocalIndexes, want.LocalIndexes) {
		t.Errorf("Local indexes = %+v, want %+v", got.LocalIndexes, want.LocalIndexes)
	}
	if !reflect.DeepEqual(got.GlobalIndexes, want.GlobalIndexes) {
		t.Errorf("Global indexes = %+v, want %+v", got.GlobalIndexes, want.GlobalIndexes)
	}
	if got.Throughput != want.Throughput {
		t.Errorf("Throughput = %+v", got.Throughput)
	}
}

func TestSchemaDeclaresGlobalIndexKeys(t *testing.T) {
	// Global index keys that are not table keys get bare attribute
	// declarations so the output parses back without loss.
	desc := richDescription()
	meta := NewTableMeta(desc)
	text := meta.Schema()

	if !strings.Contains(text, "views NUMBER") {
		t.Errorf("Expected a bare declaration for views, got %q", text)
	}
	if strings.Count(text, "id STRING") != 1 {
		t.Errorf("Declared keys must not repeat: %q", text)
	}
}

func TestSchemaFragment(t *testing.T) {
	g := &GlobalIndexMeta{
		Name:       "by-email",
		HashKey:    TableField{Name: "email", DataType: "STRING", KeyType: "HASH"},
		Projection: store.ProjectInclude,
		Includes:   []string{"name"},
		Throughput: store.ThroughputInfo{Read: 4, Write: 2},
	}
	want := "INCLUDE INDEX ('by-email', email, ['name'], THROUGHPUT (4, 2))"
	if got := g.SchemaFragment(); got != want {
		t.Errorf("SchemaFragment = %q, want %q", got, want)
	}
}

func TestSchemaOmitsZeroThroughput(t *testing.T) {
	meta := NewTableMeta(&store.TableDescription{
		Name:    "t",
		HashKey: store.AttributeInfo{Name: "id", Type: store.TypeString},
	})
	want := "CREATE TABLE t (id STRING HASH KEY);"
	if got := meta.Schema(); got != want {
		t.Errorf("Schema = %q, want %q", got, want)
	}
}

func TestDataTypeCodes(t *testing.T) {
	for _, name := range []string{"STRING", "NUMBER", "BINARY"} {
		if got := DataTypeFromCode(CodeFromDataType(name)); got != name {
			t.Errorf("Type %s round trips to %s", name, got)
		}
	}
	if CodeFromDataType("number") != store.TypeNumber {
		t.Error("Type spellings should be case-insensitive")
	}
}

func TestDescribe(t *testing.T) {
	meta := NewTableMeta(richDescription())
	meta.Status = "ACTIVE"
	meta.ItemCount = 1234567

	out := meta.Describe()
	for _, want := range []string{
		"posts (ACTIVE)",
		"1,234,567",
		"username STRING HASH KEY",
		"ts-index: local index on ts",
		"id-index: global index on id, views",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Describe output missing %q:\n%s", want, out)
		}
	}
}
