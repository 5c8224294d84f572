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
Table metadata.

TableMeta is the engine's view of a table: keys, secondary indexes,
throughput and statistics, built from the store's description and held
in the metadata cache. Planning works against QueryIndex values, which
flatten the primary key and every secondary index into one shape. The
primary key appears as the pseudo-index named "TABLE".

Schema() renders the CREATE TABLE statement that reproduces the table,
which is what DUMP SCHEMA emits and what the round-trip tests parse
back.
*/

package dql

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"dql/internal/store"
)

// PrimaryIndexName is the name under which the table's own key schema
// appears as a query index.
const PrimaryIndexName = "TABLE"

// TableField is a declared key attribute.
type TableField struct {
	Name     string
	DataType string // STRING, NUMBER or BINARY
	KeyType  string // HASH, RANGE or ""
}

func (f TableField) String() string {
	if f.KeyType == "" {
		return f.Name + " " + f.DataType
	}
	return f.Name + " " + f.DataType + " " + f.KeyType + " KEY"
}

// LocalIndexMeta is a local secondary index: an alternate range key on
// the table's hash key.
type LocalIndexMeta struct {
	Name       string
	Field      TableField // the indexed attribute
	Projection string
	Includes   []string
}

// GlobalIndexMeta is a global secondary index.
type GlobalIndexMeta struct {
	Name       string
	HashKey    TableField
	RangeKey   *TableField
	Projection string
	Includes   []string
	Throughput store.ThroughputInfo
	ItemCount  int64
	Size       int64
}

// TableMeta describes one table.
type TableMeta struct {
	Name          string
	HashKey       TableField
	RangeKey      *TableField
	LocalIndexes  []LocalIndexMeta
	GlobalIndexes []GlobalIndexMeta
	Throughput    store.ThroughputInfo
	ItemCount     int64
	Size          int64
	Status        string
}

// QueryIndex flattens the primary key or a secondary index into the
// shape the planner works with.
type QueryIndex struct {
	Name      string
	HashKey   string
	RangeKey  string
	Global    bool
	Scannable bool
}

// IsPrimary reports whether this is the table's own key schema.
func (q QueryIndex) IsPrimary() bool { return q.Name == PrimaryIndexName }

// DataTypeFromCode maps a store type code to its DQL spelling.
func DataTypeFromCode(code string) string {
	switch code {
	case store.TypeNumber:
		return "NUMBER"
	case store.TypeBinary:
		return "BINARY"
	default:
		return "STRING"
	}
}

// CodeFromDataType maps a DQL type spelling to its store code.
func CodeFromDataType(dataType string) string {
	switch strings.ToUpper(dataType) {
	case "NUMBER":
		return store.TypeNumber
	case "BINARY":
		return store.TypeBinary
	default:
		return store.TypeString
	}
}

// NewTableMeta builds table metadata from a store description.
func NewTableMeta(desc *store.TableDescription) *TableMeta {
	meta := &TableMeta{
		Name: desc.Name,
		HashKey: TableField{Name: desc.HashKey.Name,
			DataType: DataTypeFromCode(desc.HashKey.Type), KeyType: "HASH"},
		Throughput: desc.Throughput,
		ItemCount:  desc.ItemCount,
		Size:       desc.Size,
		Status:     desc.Status,
	}
	if desc.RangeKey != nil {
		meta.RangeKey = &TableField{Name: desc.RangeKey.Name,
			DataType: DataTypeFromCode(desc.RangeKey.Type), KeyType: "RANGE"}
	}
	for _, lsi := range desc.LocalIndexes {
		meta.LocalIndexes = append(meta.LocalIndexes, LocalIndexMeta{
			Name: lsi.Name,
			Field: TableField{Name: lsi.RangeKey.Name,
				DataType: DataTypeFromCode(lsi.RangeKey.Type)},
			Projection: lsi.Projection,
			Includes:   lsi.Includes,
		})
	}
	for _, gsi := range desc.GlobalIndexes {
		g := GlobalIndexMeta{
			Name: gsi.Name,
			HashKey: TableField{Name: gsi.HashKey.Name,
				DataType: DataTypeFromCode(gsi.HashKey.Type), KeyType: "HASH"},
			Projection: gsi.Projection,
			Includes:   gsi.Includes,
			Throughput: gsi.Throughput,
			ItemCount:  gsi.ItemCount,
			Size:       gsi.Size,
		}
		if gsi.RangeKey != nil {
			g.RangeKey = &TableField{Name: gsi.RangeKey.Name,
				DataType: DataTypeFromCode(gsi.RangeKey.Type), KeyType: "RANGE"}
		}
		meta.GlobalIndexes = append(meta.GlobalIndexes, g)
	}
	return meta
}

// QueryIndexes lists every index a read can go through: the primary key
// first, then local indexes, then global indexes, each in schema order.
// This order is the planner's tie-break.
func (t *TableMeta) QueryIndexes() []QueryIndex {
	out := []QueryIndex{{
		Name:      PrimaryIndexName,
		HashKey:   t.HashKey.Name,
		RangeKey:  rangeName(t.RangeKey),
		Scannable: true,
	}}
	for _, lsi := range t.LocalIndexes {
		out = append(out, QueryIndex{
			Name:     lsi.Name,
			HashKey:  t.HashKey.Name,
			RangeKey: lsi.Field.Name,
		})
	}
	for _, gsi := range t.GlobalIndexes {
		out = append(out, QueryIndex{
			Name:      gsi.Name,
			HashKey:   gsi.HashKey.Name,
			RangeKey:  rangeName(gsi.RangeKey),
			Global:    true,
			Scannable: true,
		})
	}
	return out
}

// GetIndex finds a query index by name. The primary key answers to
// "TABLE".
func (t *TableMeta) GetIndex(name string) (QueryIndex, bool) {
	for _, idx := range t.QueryIndexes() {
		if idx.Name == name {
			return idx, true
		}
	}
	return QueryIndex{}, false
}

// GetMatchingIndexes returns the indexes whose hash key appears in
// possibleHash. When any candidate's range key appears in
// possibleRange, candidates without such a range key are dropped.
// Order follows QueryIndexes.
func (t *TableMeta) GetMatchingIndexes(possibleHash, possibleRange []string) []QueryIndex {
	var candidates []QueryIndex
	for _, idx := range t.QueryIndexes() {
		if fieldListContains(possibleHash, idx.HashKey) {
			candidates = append(candidates, idx)
		}
	}
	var narrowed []QueryIndex
	for _, idx := range candidates {
		if idx.RangeKey != "" && fieldListContains(possibleRange, idx.RangeKey) {
			narrowed = append(narrowed, idx)
		}
	}
	if len(narrowed) > 0 {
		return narrowed
	}
	return candidates
}

func rangeName(f *TableField) string {
	if f == nil {
		return ""
	}
	return f.Name
}

// Schema renders the CREATE TABLE statement that reproduces this table.
// Global index keys not otherwise declared get bare attribute
// declarations, so the output parses back without loss.
func (t *TableMeta) Schema() string {
	var attrs []string
	declared := map[string]bool{t.HashKey.Name: true}
	attrs = append(attrs, t.HashKey.String())
	if t.RangeKey != nil {
		attrs = append(attrs, t.RangeKey.String())
		declared[t.RangeKey.Name] = true
	}
	for _, lsi := range t.LocalIndexes {
		decl := lsi.Field.Name + " " + lsi.Field.DataType + " " +
			projectionKeyword(lsi.Projection) + "INDEX(" + quoteString(lsi.Name)
		if lsi.Projection == store.ProjectInclude {
			decl += ", " + includeList(lsi.Includes)
		}
		decl += ")"
		attrs = append(attrs, decl)
		declared[lsi.Field.Name] = true
	}
	for _, gsi := range t.GlobalIndexes {
		if !declared[gsi.HashKey.Name] {
			attrs = append(attrs, gsi.HashKey.Name+" "+gsi.HashKey.DataType)
			declared[gsi.HashKey.Name] = true
		}
		if gsi.RangeKey != nil && !declared[gsi.RangeKey.Name] {
			attrs = append(attrs, gsi.RangeKey.Name+" "+gsi.RangeKey.DataType)
			declared[gsi.RangeKey.Name] = true
		}
	}
	if t.Throughput.Read != 0 || t.Throughput.Write != 0 {
		attrs = append(attrs, fmt.Sprintf("THROUGHPUT (%d, %d)",
			t.Throughput.Read, t.Throughput.Write))
	}

	stmt := "CREATE TABLE " + t.Name + " (" + strings.Join(attrs, ", ") + ")"
	for _, gsi := range t.GlobalIndexes {
		stmt += " GLOBAL " + gsi.SchemaFragment()
	}
	return stmt + ";"
}

// SchemaFragment renders the index portion of a GLOBAL INDEX clause,
// shared by DUMP SCHEMA and ALTER TABLE CREATE.
func (g *GlobalIndexMeta) SchemaFragment() string {
	parts := []string{quoteString(g.Name), g.HashKey.Name}
	if g.RangeKey != nil {
		parts = append(parts, g.RangeKey.Name)
	}
	if g.Projection == store.ProjectInclude {
		parts = append(parts, includeList(g.Includes))
	}
	if g.Throughput.Read != 0 || g.Throughput.Write != 0 {
		parts = append(parts, fmt.Sprintf("THROUGHPUT (%d, %d)",
			g.Throughput.Read, g.Throughput.Write))
	}
	return projectionKeyword(g.Projection) + "INDEX (" + strings.Join(parts, ", ") + ")"
}

func projectionKeyword(projection string) string {
	switch projection {
	case store.ProjectKeysOnly:
		return "KEYS "
	case store.ProjectInclude:
		return "INCLUDE "
	default:
		return "ALL "
	}
}

func includeList(includes []string) string {
	parts := make([]string, len(includes))
	for i, inc := range includes {
		parts[i] = quoteString(inc)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Describe renders a human-readable summary of the table for the
// shell's \d command.
func (t *TableMeta) Describe() string {
	p := message.NewPrinter(language.English)
	var sb strings.Builder
	p.Fprintf(&sb, "%s (%s)\n", t.Name, t.Status)
	p.Fprintf(&sb, "items: %d   size: %d bytes\n", t.ItemCount, t.Size)
	p.Fprintf(&sb, "read/write throughput: %d/%d\n", t.Throughput.Read, t.Throughput.Write)
	sb.WriteString("  " + t.HashKey.String() + "\n")
	if t.RangeKey != nil {
		sb.WriteString("  " + t.RangeKey.String() + "\n")
	}
	for _, lsi := range t.LocalIndexes {
		p.Fprintf(&sb, "  %s: local index on %s (%s)\n",
			lsi.Name, lsi.Field.Name, projectionName(lsi.Projection))
	}
	for _, gsi := range t.GlobalIndexes {
		keys := gsi.HashKey.Name
		if gsi.RangeKey != nil {
			keys += ", " + gsi.RangeKey.Name
		}
		p.Fprintf(&sb, "  %s: global index on %s (%s) items: %d throughput: %d/%d\n",
			gsi.Name, keys, projectionName(gsi.Projection),
			gsi.ItemCount, gsi.Throughput.Read, gsi.Throughput.Write)
	}
	return sb.String()
}

func projectionName(projection string) string {
	if projection == "" {
		return store.ProjectAll
	}
	return projection
}
