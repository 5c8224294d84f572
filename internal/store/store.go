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
Package store defines the table-store contract the DQL engine drives:
wide-column tables with a hash key, an optional range key, local and
global secondary indexes, lazily paginated queries and scans, and
conditional filter expressions evaluated store-side.

The package also ships an in-memory implementation used by the shell's
memory endpoint and by tests. Remote backends implement the same
TableStore interface.
*/
package store

import (
	"context"
	"errors"
)

// Store-level failures the engine inspects by identity. IF EXISTS and
// IF NOT EXISTS clauses swallow exactly these.
var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
	ErrIndexNotFound = errors.New("index not found")
	ErrIndexExists   = errors.New("index already exists")
)

// Attribute type codes.
const (
	TypeString = "S"
	TypeNumber = "N"
	TypeBinary = "B"
)

// Projection classes for secondary indexes.
const (
	ProjectAll      = "ALL"
	ProjectKeysOnly = "KEYS_ONLY"
	ProjectInclude  = "INCLUDE"
)

// RETURNS arguments for item mutation.
const (
	ReturnNone       = "NONE"
	ReturnAllOld     = "ALL_OLD"
	ReturnAllNew     = "ALL_NEW"
	ReturnUpdatedOld = "UPDATED_OLD"
	ReturnUpdatedNew = "UPDATED_NEW"
)

// AttributeInfo names a key attribute and its type code.
type AttributeInfo struct {
	Name string
	Type string
}

// ThroughputInfo is provisioned read/write capacity.
type ThroughputInfo struct {
	Read  int64
	Write int64
}

// LocalIndex is an alternate range key sharing the table's hash key.
type LocalIndex struct {
	Name       string
	RangeKey   AttributeInfo
	Projection string
	Includes   []string
}

// GlobalIndex is an independent key schema over the same items.
type GlobalIndex struct {
	Name       string
	HashKey    AttributeInfo
	RangeKey   *AttributeInfo
	Projection string
	Includes   []string
	Throughput ThroughputInfo
	ItemCount  int64
	Size       int64
}

// TableDescription describes a table's schema and statistics. It
// doubles as the CreateTable input, with counts and status ignored.
type TableDescription struct {
	Name          string
	HashKey       AttributeInfo
	RangeKey      *AttributeInfo
	LocalIndexes  []LocalIndex
	GlobalIndexes []GlobalIndex
	Throughput    ThroughputInfo
	ItemCount     int64
	Size          int64
	Status        string
}

// Expression is a rendered condition expression: placeholder text plus
// the attribute-name and value substitutions. The store owns parsing
// and evaluating it.
type Expression struct {
	Text   string
	Names  map[string]string
	Values map[string]interface{}
}

// Range key condition operators.
const (
	RangeEQ         = "="
	RangeLT         = "<"
	RangeLE         = "<="
	RangeGT         = ">"
	RangeGE         = ">="
	RangeBetween    = "BETWEEN"
	RangeBeginsWith = "BEGINS_WITH"
)

// KeyCondition restricts a query to one hash key value and an optional
// range key predicate. RangeOp is empty when the range key is
// unconstrained; BETWEEN carries two RangeValues, every other operator
// one.
type KeyCondition struct {
	HashField   string
	HashValue   interface{}
	RangeField  string
	RangeOp     string
	RangeValues []interface{}
}

// QueryInput drives an index query. Limit bounds items returned after
// filtering, ScanLimit bounds items examined; zero means unbounded.
type QueryInput struct {
	Table      string
	Index      string
	Key        KeyCondition
	Filter     *Expression
	Limit      int
	ScanLimit  int
	Consistent bool
	Desc       bool
}

// ScanInput drives a full-table or global-index scan.
type ScanInput struct {
	Table     string
	Index     string
	Filter    *Expression
	Limit     int
	ScanLimit int
}

// Update action kinds.
type ActionKind int

const (
	ActionSet ActionKind = iota
	ActionAdd
	ActionDelete
	ActionRemove
)

// UpdateAction mutates a single attribute of one item.
type UpdateAction struct {
	Field string
	Kind  ActionKind
	Value interface{}
}

// UpdateItemInput applies a list of actions to the item with the given
// primary key, creating it if absent.
type UpdateItemInput struct {
	Table   string
	Key     Item
	Actions []UpdateAction
	Returns string
}

// UpdateTableInput alters throughput or global indexes. Exactly one of
// the optional fields is set per call.
type UpdateTableInput struct {
	Table           string
	Throughput      *ThroughputInfo
	IndexName       string
	IndexThroughput *ThroughputInfo
	CreateIndex     *GlobalIndex
	DropIndex       string
}

// ItemIterator pages through query or scan results lazily.
//
//	for it.Next() {
//	    item := it.Item()
//	}
//	if err := it.Err(); err != nil { ... }
type ItemIterator interface {
	Next() bool
	Item() Item
	Err() error
	// ScannedCount reports items examined so far, before filtering.
	ScannedCount() int
}

// CapacityRecorder receives consumed read/write capacity per store
// call. Implementations must be safe for concurrent use.
type CapacityRecorder interface {
	RecordCapacity(table, index, op string, read, write float64)
}

// CapacitySettable is implemented by stores that can report consumed
// capacity. A nil recorder detaches.
type CapacitySettable interface {
	SetCapacityRecorder(r CapacityRecorder)
}

// TableStore is the backend contract the engine drives. Implementations
// resolve every read through an index (the primary key is the unnamed
// index) and evaluate filter expressions store-side.
type TableStore interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) (*TableDescription, error)
	CreateTable(ctx context.Context, desc *TableDescription) error
	DeleteTable(ctx context.Context, table string) error
	UpdateTable(ctx context.Context, in *UpdateTableInput) error

	Query(ctx context.Context, in *QueryInput) (ItemIterator, error)
	Scan(ctx context.Context, in *ScanInput) (ItemIterator, error)
	BatchGet(ctx context.Context, table string, keys []Item, consistent bool) (ItemIterator, error)

	PutItem(ctx context.Context, table string, item Item) error
	UpdateItem(ctx context.Context, in *UpdateItemInput) (Item, error)
	DeleteItem(ctx context.Context, table string, key Item) error
}
